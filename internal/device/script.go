package device

import (
	"context"
	"time"
)

type actionKind int

const (
	actTap actionKind = iota
	actKey
	actText
	actWait
	actStatus
)

// Action is one scripted step against a 960x540 emulator screen.
type Action struct {
	kind   actionKind
	x, y   int
	key    int
	repeat int
	text   string
	step   int
	delay  time.Duration
}

func tap(x, y int, delay time.Duration) Action {
	return Action{kind: actTap, x: x, y: y, delay: delay}
}

func key(code, repeat int, delay time.Duration) Action {
	return Action{kind: actKey, key: code, repeat: repeat, delay: delay}
}

func input(text string) Action {
	return Action{kind: actText, text: text, delay: 500 * time.Millisecond}
}

func wait(d time.Duration) Action {
	return Action{kind: actWait, delay: d}
}

// status with step 0 keeps the current step.
func status(step int, msg string) Action {
	return Action{kind: actStatus, step: step, text: msg}
}

const (
	ms  = time.Millisecond
	sec = time.Second
)

func repeatTap(x, y, n int, delay time.Duration) []Action {
	out := make([]Action, n)
	for i := range out {
		out[i] = tap(x, y, delay)
	}
	return out
}

func concat(parts ...[]Action) []Action {
	var out []Action
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// openAccountConnect brings the game from a cold start to the login
// provider chooser.
func openAccountConnect() []Action {
	return concat(
		[]Action{
			status(1, "waiting for the game to load (30s)..."),
			wait(30 * sec),
			status(2, "closing check-in popup..."),
		},
		repeatTap(814, 62, 4, 1500*ms),
		[]Action{
			status(3, "closing popups..."),
			key(KeyBack, 100, 150*ms),
			wait(1 * sec),
			status(4, "cancelling exit dialog..."),
			tap(400, 380, 1*sec),
			status(5, "opening settings..."),
			tap(845, 500, 1500*ms),
			status(6, "selecting account..."),
			tap(710, 90, 1*sec),
			status(7, "pressing connect..."),
			tap(580, 345, 1500*ms),
		},
	)
}

func lineLogin(id, password string) []Action {
	return []Action{
		status(8, "choosing LINE login..."),
		tap(480, 430, 2*sec),
		status(9, "entering LINE ID..."),
		tap(480, 315, 500*ms),
		input(id),
		status(10, "entering password..."),
		tap(480, 420, 500*ms),
		input(password),
		status(11, "pressing login (8s)..."),
		tap(480, 530, 8*sec),
		status(12, "allowing and consenting..."),
		tap(480, 425, 2*sec),
		tap(920, 215, 1*sec),
		tap(920, 410, 1*sec),
		tap(920, 520, 1*sec),
		key(KeyPageDown, 1, 1*sec),
		tap(415, 405, 1500*ms),
		tap(480, 410, 1*sec),
		status(12, "LINE login complete"),
	}
}

// googleCredentials stops right after the password is confirmed; what
// follows depends on whether Google asks for a second factor.
func googleCredentials(email, password string) []Action {
	return []Action{
		status(8, "choosing Google login..."),
		tap(480, 245, 3*sec),
		status(9, "entering email..."),
		wait(2 * sec),
		tap(430, 430, 500*ms),
		input(email),
		status(10, "pressing next..."),
		tap(860, 500, 3*sec),
		status(11, "entering password..."),
		tap(400, 400, 500*ms),
		input(password),
		status(12, "pressing confirm..."),
		tap(860, 500, 5*sec),
		status(13, "checking for 2FA..."),
		wait(3 * sec),
	}
}

func googleConsent() []Action {
	return []Action{
		status(13, "no 2FA prompt, continuing to consent"),
		status(14, "consent steps..."),
		key(KeyPageDown, 1, 1*sec),
		tap(825, 280, 1500*ms),
		tap(110, 495, 1500*ms),
		tap(810, 505, 1500*ms),
		tap(810, 505, 1500*ms),
		tap(70, 510, 1500*ms),
		tap(630, 440, 1500*ms),
		tap(555, 360, 1*sec),
		tap(480, 410, 2500*ms),
		tap(920, 220, 1*sec),
		tap(920, 415, 1*sec),
		tap(920, 520, 1*sec),
		key(KeyPageDown, 1, 1*sec),
		tap(415, 405, 1*sec),
	}
}

func phase2() []Action {
	return []Action{
		status(1, "starting phase 2..."),
		key(KeyDPadDown, 30, 50*ms),
		wait(1 * sec),
		tap(95, 415, 1500*ms),
		status(9, "scrolling down..."),
		key(KeyDPadDown, 30, 50*ms),
		wait(1 * sec),
		status(10, "pressing next..."),
		tap(825, 285, 1500*ms),
		status(11, "tapping next..."),
		tap(110, 490, 1500*ms),
		status(12, "tapping next..."),
		tap(265, 490, 1500*ms),
		tap(75, 490, 1500*ms),
		status(13, "tapping next..."),
		tap(860, 505, 1*sec),
		tap(75, 490, 1500*ms),
		tap(860, 505, 1500*ms),
		tap(75, 490, 1500*ms),
		status(14, "tapping next..."),
		tap(485, 410, 1500*ms),
		tap(75, 490, 1500*ms),
		status(15, "tapping next..."),
		tap(920, 215, 1*sec),
		status(16, "tapping next..."),
		tap(920, 410, 1*sec),
		status(17, "tapping next..."),
		tap(920, 520, 1*sec),
		status(18, "tapping next..."),
		key(KeyPageDown, 1, 1*sec),
		status(19, "tapping next..."),
		tap(415, 405, 1*sec),
		status(19, "phase 2 complete"),
	}
}

const phase2Steps = 19

func (l *Linker) run(ctx context.Context, rep *reporter, script []Action) error {
	for _, a := range script {
		if err := ctx.Err(); err != nil {
			return err
		}

		var err error
		switch a.kind {
		case actTap:
			err = l.bridge.Tap(ctx, a.x, a.y, a.delay)
		case actKey:
			n := a.repeat
			if n < 1 {
				n = 1
			}
			for i := 0; i < n && err == nil; i++ {
				err = l.bridge.KeyEvent(ctx, a.key, a.delay)
			}
		case actText:
			err = l.bridge.Text(ctx, a.text, a.delay)
		case actWait:
			err = l.bridge.sleep(ctx, a.delay)
		case actStatus:
			rep.show(ctx, a.step, a.text)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
