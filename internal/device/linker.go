package device

import (
	"context"
	"fmt"
	"image"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/axonake/RANGERSTORE/pkg/logger"
	"github.com/disintegration/imaging"
)

const (
	MethodGoogle = "google"
	MethodLine   = "line"
)

var (
	twoFactorHeader = image.Rect(200, 190, 760, 235)
	twoFactorFooter = image.Rect(30, 480, 400, 540)
	twoFactorCode   = image.Rect(390, 50, 570, 125)

	twoFactorHeaderPhrases = []string{"Verify it's you", "2-Step Verification"}
	twoFactorFooterPhrases = []string{"TRY ANOTHER WAY"}
)

type Options struct {
	Package       string
	PrefFilename  string
	TargetPath    string
	ScreenshotDir string
}

type LinkRequest struct {
	SourceFile   string
	Method       string
	CustomerID   string
	CustomerPass string
}

func (r LinkRequest) automate() bool {
	return r.Method != "" && r.CustomerID != "" && r.CustomerPass != ""
}

type Result struct {
	Message          string
	VerificationCode string
}

// Linker installs a credential file on the emulator and drives the game
// through its account-link screens.
type Linker struct {
	bridge  *Bridge
	ocr     OCR
	opts    Options
	capture func(ctx context.Context, name string) (image.Image, error)
}

func NewLinker(bridge *Bridge, ocr OCR, opts Options) *Linker {
	l := &Linker{
		bridge: bridge,
		ocr:    ocr,
		opts:   opts,
	}
	l.capture = l.screenshot
	return l
}

type reporter struct {
	bridge   *Bridge
	total    int
	step     int
	progress func(string)
}

func (r *reporter) show(ctx context.Context, step int, msg string) {
	if step > 0 {
		r.step = step
	}

	text := fmt.Sprintf("[%d/%d] %s", r.step, r.total, msg)
	logger.Log.Debug("device status", logger.String("status", text))

	if r.progress != nil {
		r.progress(text)
	}
	if err := r.bridge.Notify(ctx, text); err != nil {
		logger.Log.Debug("error posting device notification", logger.Error(err))
	}
}

func (l *Linker) Link(ctx context.Context, req LinkRequest, progress func(string)) (Result, error) {
	if _, err := l.bridge.Connect(ctx); err != nil {
		return Result{}, err
	}

	rep := &reporter{bridge: l.bridge, total: 3, progress: progress}
	if req.automate() {
		rep.total = 15
	}

	rep.show(ctx, 1, "starting credential file transfer...")
	if err := l.transfer(ctx, rep, req.SourceFile); err != nil {
		return Result{}, err
	}

	rep.show(ctx, 2, "starting game...")
	if err := l.bridge.StartApp(ctx, l.opts.Package); err != nil {
		return Result{}, fmt.Errorf("error starting game: %w", err)
	}

	if !req.automate() {
		return Result{Message: "credential file installed"}, nil
	}

	rep.show(ctx, 3, "starting automation...")
	return l.login(ctx, rep, req)
}

func (l *Linker) transfer(ctx context.Context, rep *reporter, source string) error {
	if _, err := os.Stat(source); err != nil {
		return fmt.Errorf("credential file not found: %w", err)
	}

	rep.show(ctx, 1, "transferring credential file...")
	if err := l.bridge.ForceStop(ctx, l.opts.Package); err != nil {
		return fmt.Errorf("error stopping game: %w", err)
	}
	if err := l.bridge.sleep(ctx, 1*time.Second); err != nil {
		return err
	}

	temp := path.Join("/sdcard", l.opts.PrefFilename)
	rep.show(ctx, 0, "uploading file...")
	if err := l.bridge.Push(ctx, source, temp); err != nil {
		return err
	}

	rep.show(ctx, 0, "moving file with root...")
	for _, cmd := range []string{
		"rm -f " + l.opts.TargetPath,
		"mv " + temp + " " + l.opts.TargetPath,
		"chmod 777 " + l.opts.TargetPath,
	} {
		if _, err := l.bridge.ShellSU(ctx, cmd); err != nil {
			return fmt.Errorf("error installing credential file: %w", err)
		}
	}

	rep.show(ctx, 0, "file transferred")
	return nil
}

func (l *Linker) login(ctx context.Context, rep *reporter, req LinkRequest) (Result, error) {
	method := strings.ToLower(req.Method)
	switch method {
	case MethodGoogle:
		rep.total = 15
	case MethodLine:
		rep.total = 12
	default:
		return Result{}, fmt.Errorf("unsupported link method %q", req.Method)
	}

	if err := l.bridge.ShowTouches(ctx, true); err != nil {
		return Result{}, err
	}

	if err := l.run(ctx, rep, openAccountConnect()); err != nil {
		return Result{}, err
	}

	if method == MethodLine {
		if err := l.run(ctx, rep, lineLogin(req.CustomerID, req.CustomerPass)); err != nil {
			return Result{}, err
		}
		return Result{Message: "LINE login complete"}, nil
	}

	if err := l.run(ctx, rep, googleCredentials(req.CustomerID, req.CustomerPass)); err != nil {
		return Result{}, err
	}

	res := Result{Message: "Google login complete"}

	if l.twoFactorPrompt(ctx) {
		code, err := l.readCode(ctx, rep)
		if err != nil {
			return Result{}, err
		}
		if code != "" {
			res.VerificationCode = code
			res.Message = "Google 2FA code: " + code
		}
	} else if err := l.run(ctx, rep, googleConsent()); err != nil {
		return Result{}, err
	}

	rep.show(ctx, 15, "Google login finished")
	return res, nil
}

// twoFactorPrompt reports whether Google is asking to confirm the sign-in
// on another device. OCR failures count as no prompt.
func (l *Linker) twoFactorPrompt(ctx context.Context) bool {
	img, err := l.capture(ctx, "check_text.png")
	if err != nil {
		logger.Log.Warn("error capturing screen for 2FA check", logger.Error(err))
		return false
	}

	check := func(r image.Rectangle, phrases []string) bool {
		text, err := l.ocr.Read(ctx, crop(img, r), OCRText)
		if err != nil {
			logger.Log.Warn("ocr error", logger.Error(err))
			return false
		}
		for _, p := range phrases {
			if containsFold(text, p) {
				return true
			}
		}
		return false
	}

	return check(twoFactorHeader, twoFactorHeaderPhrases) || check(twoFactorFooter, twoFactorFooterPhrases)
}

func (l *Linker) readCode(ctx context.Context, rep *reporter) (string, error) {
	rep.show(ctx, 13, "2FA prompt found, pressing space...")
	if err := l.bridge.KeyEvent(ctx, KeySpace, 2*time.Second); err != nil {
		return "", err
	}

	rep.show(ctx, 13, "reading the 2-digit code...")
	img, err := l.capture(ctx, "2fa_code.png")
	if err != nil {
		logger.Log.Warn("error capturing screen for 2FA code", logger.Error(err))
		rep.show(ctx, 13, "no digits found")
		return "", nil
	}

	roi := binarize(crop(img, twoFactorCode), 200)
	if err := saveDebug(l.opts.ScreenshotDir, fmt.Sprintf("debug_crop_%d.png", time.Now().Unix()), roi); err != nil {
		logger.Log.Debug("error saving debug crop", logger.Error(err))
	}

	text, err := l.ocr.Read(ctx, roi, OCRDigits)
	if err != nil {
		logger.Log.Warn("ocr error", logger.Error(err))
	}

	code := extractDigits(text)
	if len(code) > 2 {
		code = code[:2]
	}
	if code == "" {
		rep.show(ctx, 13, "no digits found")
		return "", nil
	}

	rep.show(ctx, 13, "USER CODE: "+code)
	return code, nil
}

// Phase2 finishes the Google flow once the user confirmed the prompt.
func (l *Linker) Phase2(ctx context.Context, progress func(string)) (Result, error) {
	if l.bridge.Serial() == "" {
		if _, err := l.bridge.Connect(ctx); err != nil {
			return Result{}, err
		}
	}

	rep := &reporter{bridge: l.bridge, total: phase2Steps, progress: progress}
	if err := l.run(ctx, rep, phase2()); err != nil {
		return Result{}, err
	}

	return Result{Message: "phase 2 complete"}, nil
}

func (l *Linker) screenshot(ctx context.Context, name string) (image.Image, error) {
	if err := os.MkdirAll(l.opts.ScreenshotDir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating screenshot dir: %w", err)
	}

	local := filepath.Join(l.opts.ScreenshotDir, name)
	if err := l.bridge.Screenshot(ctx, local); err != nil {
		return nil, err
	}

	img, err := imaging.Open(local)
	if err != nil {
		return nil, fmt.Errorf("error opening screenshot: %w", err)
	}
	return img, nil
}
