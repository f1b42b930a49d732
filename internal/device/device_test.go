package device

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	mu      sync.Mutex
	calls   []string
	respond func(args []string) (string, error)
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, strings.Join(append([]string{name}, args...), " "))
	f.mu.Unlock()

	if f.respond != nil {
		return f.respond(args)
	}
	if len(args) > 0 && args[0] == "devices" {
		return "List of devices attached\nemulator-5554\tdevice", nil
	}
	return "", nil
}

func (f *fakeRunner) shells() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []string
	for _, c := range f.calls {
		if i := strings.Index(c, " shell "); i >= 0 {
			out = append(out, c[i+len(" shell "):])
		}
	}
	return out
}

func (f *fakeRunner) count(shell string) int {
	n := 0
	for _, s := range f.shells() {
		if s == shell {
			n++
		}
	}
	return n
}

type fakeOCR struct {
	text   string
	digits string
	err    error
}

func (f fakeOCR) Read(_ context.Context, _ image.Image, mode OCRMode) (string, error) {
	if mode == OCRDigits {
		return f.digits, f.err
	}
	return f.text, f.err
}

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func newTestLinker(t *testing.T, r *fakeRunner, ocr OCR) *Linker {
	t.Helper()

	b := NewBridge(r, "adb", "127.0.0.1", []int{5555})
	b.sleep = noSleep

	l := NewLinker(b, ocr, Options{
		Package:       "com.example.game",
		PrefFilename:  "prefs.xml",
		TargetPath:    "/data/data/com.example.game/shared_prefs/prefs.xml",
		ScreenshotDir: t.TempDir(),
	})
	l.capture = func(context.Context, string) (image.Image, error) {
		return image.NewNRGBA(image.Rect(0, 0, 960, 540)), nil
	}
	return l
}

func credentialFile(t *testing.T) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), "stock.xml")
	require.NoError(t, os.WriteFile(p, []byte("<map/>"), 0o600))
	return p
}

func TestParseDevices(t *testing.T) {
	out := "List of devices attached\nemulator-5554\tdevice\n127.0.0.1:7555\toffline\n127.0.0.1:5555\tdevice\n"
	assert.Equal(t, []string{"emulator-5554", "127.0.0.1:5555"}, parseDevices(out))
	assert.Empty(t, parseDevices("List of devices attached\n"))
}

func TestEscapeInput(t *testing.T) {
	assert.Equal(t, "john%sdoe's@mail.com", escapeInput("john doe's@mail.com"))
}

func TestShellQuoteKeepsSingleArgument(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}

	for _, in := range []string{
		"plain",
		"it's",
		"x';echo${IFS}INJECTED;#",
		"''",
		`a"b$c\d` + "`id`",
		"semi;colon && pipe | amp &",
	} {
		out, err := exec.Command(sh, "-c", "printf '%s|' "+shellQuote(in)).Output()
		require.NoError(t, err, in)
		assert.Equal(t, in+"|", string(out), in)
	}
}

func TestExecRunnerErrorOmitsArguments(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}

	_, err = ExecRunner{Timeout: 5 * time.Second}.Run(context.Background(), sh, "-c", "exit 3", "hunter2")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "hunter2")
	assert.Contains(t, err.Error(), "exit status 3")
}

func TestFailedTextEntryDoesNotExposePassword(t *testing.T) {
	fail, err := exec.LookPath("false")
	if err != nil {
		t.Skip("false not available")
	}

	r := &fakeRunner{}
	r.respond = func(args []string) (string, error) {
		if args[0] == "devices" {
			return "List of devices attached\nemulator-5554\tdevice", nil
		}
		if len(args) == 4 && strings.HasPrefix(args[3], "input text ") {
			return ExecRunner{Timeout: 5 * time.Second}.Run(context.Background(), fail, args...)
		}
		return "", nil
	}
	l := newTestLinker(t, r, fakeOCR{})

	var progress []string
	_, err = l.Link(context.Background(), LinkRequest{
		SourceFile:   credentialFile(t),
		Method:       MethodLine,
		CustomerID:   "ranger01",
		CustomerPass: "s3cr3t'pass",
	}, func(s string) { progress = append(progress, s) })

	require.Error(t, err)
	assert.Contains(t, err.Error(), "error entering text")
	assert.NotContains(t, err.Error(), "s3cr3t")
	assert.NotContains(t, err.Error(), "ranger01")
	for _, p := range progress {
		assert.NotContains(t, p, "s3cr3t")
	}
}

func TestConnectTriesEmulatorPorts(t *testing.T) {
	connected := false
	r := &fakeRunner{}
	r.respond = func(args []string) (string, error) {
		switch args[0] {
		case "connect":
			connected = true
			return "connected to " + args[1], nil
		case "devices":
			if connected {
				return "List of devices attached\n127.0.0.1:5555\tdevice", nil
			}
			return "List of devices attached\n", nil
		}
		return "", nil
	}

	b := NewBridge(r, "adb", "127.0.0.1", []int{5555})
	b.sleep = noSleep

	serial, err := b.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:5555", serial)
	assert.Contains(t, r.calls, "adb connect 127.0.0.1:5555")
	assert.Equal(t, "127.0.0.1:5555", b.Serial())
}

func TestConnectWithoutDevices(t *testing.T) {
	r := &fakeRunner{respond: func(args []string) (string, error) {
		if args[0] == "devices" {
			return "List of devices attached\n", nil
		}
		return "", errors.New("unable to connect")
	}}

	b := NewBridge(r, "adb", "127.0.0.1", []int{7555, 5555})
	b.sleep = noSleep

	_, err := b.Connect(context.Background())
	assert.ErrorIs(t, err, ErrNoDevice)
}

func TestLinkInstallsFileWithoutAutomation(t *testing.T) {
	r := &fakeRunner{}
	l := newTestLinker(t, r, fakeOCR{})
	src := credentialFile(t)

	var progress []string
	res, err := l.Link(context.Background(), LinkRequest{SourceFile: src}, func(s string) {
		progress = append(progress, s)
	})
	require.NoError(t, err)
	assert.Equal(t, "credential file installed", res.Message)

	assert.Contains(t, r.calls, "adb -s emulator-5554 push "+src+" /sdcard/prefs.xml")
	shells := r.shells()
	assert.Contains(t, shells, "am force-stop com.example.game")
	assert.Contains(t, shells, "su -c 'rm -f /data/data/com.example.game/shared_prefs/prefs.xml'")
	assert.Contains(t, shells, "su -c 'mv /sdcard/prefs.xml /data/data/com.example.game/shared_prefs/prefs.xml'")
	assert.Contains(t, shells, "su -c 'chmod 777 /data/data/com.example.game/shared_prefs/prefs.xml'")
	assert.Contains(t, shells, "monkey -p com.example.game -c android.intent.category.LAUNCHER 1")

	require.NotEmpty(t, progress)
	assert.Equal(t, "[1/3] starting credential file transfer...", progress[0])
	assert.Equal(t, "[2/3] starting game...", progress[len(progress)-1])
}

func TestLinkMissingFile(t *testing.T) {
	l := newTestLinker(t, &fakeRunner{}, fakeOCR{})

	_, err := l.Link(context.Background(), LinkRequest{SourceFile: "/nonexistent/file.xml"}, nil)
	assert.ErrorContains(t, err, "credential file not found")
}

func TestLinkLine(t *testing.T) {
	r := &fakeRunner{}
	l := newTestLinker(t, r, fakeOCR{})

	var progress []string
	res, err := l.Link(context.Background(), LinkRequest{
		SourceFile:   credentialFile(t),
		Method:       "LINE",
		CustomerID:   "ranger01",
		CustomerPass: "p@ss word",
	}, func(s string) { progress = append(progress, s) })
	require.NoError(t, err)
	assert.Equal(t, "LINE login complete", res.Message)
	assert.Empty(t, res.VerificationCode)

	assert.Equal(t, 4, r.count("input tap 814 62"))
	assert.Equal(t, 100, r.count("input keyevent 4"))
	assert.Equal(t, 1, r.count("input text 'ranger01'"))
	assert.Equal(t, 1, r.count(`input text 'p@ss%sword'`))
	assert.Equal(t, 1, r.count("settings put system show_touches 1"))
	assert.Equal(t, "[12/12] LINE login complete", progress[len(progress)-1])
}

func TestLinkGoogleWithTwoFactor(t *testing.T) {
	r := &fakeRunner{}
	l := newTestLinker(t, r, fakeOCR{text: "Verify it’s you\nVERIFY IT'S YOU", digits: "4 7 3\n"})

	res, err := l.Link(context.Background(), LinkRequest{
		SourceFile:   credentialFile(t),
		Method:       "google",
		CustomerID:   "someone@gmail.com",
		CustomerPass: "secret",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "47", res.VerificationCode)
	assert.Equal(t, "Google 2FA code: 47", res.Message)

	assert.Equal(t, 1, r.count("input keyevent 62"))
	assert.Equal(t, 0, r.count("input tap 825 280"), "consent script must not run")
}

func TestLinkGoogleWithoutTwoFactor(t *testing.T) {
	r := &fakeRunner{}
	l := newTestLinker(t, r, fakeOCR{text: "Welcome"})

	var progress []string
	res, err := l.Link(context.Background(), LinkRequest{
		SourceFile:   credentialFile(t),
		Method:       "google",
		CustomerID:   "someone@gmail.com",
		CustomerPass: "secret",
	}, func(s string) { progress = append(progress, s) })
	require.NoError(t, err)
	assert.Empty(t, res.VerificationCode)
	assert.Equal(t, "Google login complete", res.Message)

	assert.Equal(t, 0, r.count("input keyevent 62"))
	assert.Equal(t, 1, r.count("input tap 825 280"))
	assert.Equal(t, 2, r.count("input tap 810 505"))
	assert.Equal(t, "[15/15] Google login finished", progress[len(progress)-1])
}

func TestLinkGoogleTwoFactorWithoutDigits(t *testing.T) {
	r := &fakeRunner{}
	l := newTestLinker(t, r, fakeOCR{text: "TRY ANOTHER WAY", digits: "--"})

	res, err := l.Link(context.Background(), LinkRequest{
		SourceFile:   credentialFile(t),
		Method:       "google",
		CustomerID:   "someone@gmail.com",
		CustomerPass: "secret",
	}, nil)
	require.NoError(t, err)
	assert.Empty(t, res.VerificationCode)
	assert.Equal(t, 0, r.count("input tap 825 280"))
}

func TestLinkRejectsUnknownMethod(t *testing.T) {
	l := newTestLinker(t, &fakeRunner{}, fakeOCR{})

	_, err := l.Link(context.Background(), LinkRequest{
		SourceFile:   credentialFile(t),
		Method:       "facebook",
		CustomerID:   "a",
		CustomerPass: "b",
	}, nil)
	assert.ErrorContains(t, err, "unsupported link method")
}

func TestLinkStopsWhenCancelled(t *testing.T) {
	r := &fakeRunner{}
	l := newTestLinker(t, r, fakeOCR{})

	ctx, cancel := context.WithCancel(context.Background())
	var once sync.Once
	_, err := l.Link(ctx, LinkRequest{
		SourceFile:   credentialFile(t),
		Method:       "line",
		CustomerID:   "a",
		CustomerPass: "b",
	}, func(s string) {
		if strings.Contains(s, "starting automation") {
			once.Do(cancel)
		}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, r.count("input tap 814 62"))
}

func TestPhase2(t *testing.T) {
	r := &fakeRunner{}
	l := newTestLinker(t, r, fakeOCR{})

	var progress []string
	res, err := l.Phase2(context.Background(), func(s string) { progress = append(progress, s) })
	require.NoError(t, err)
	assert.Equal(t, "phase 2 complete", res.Message)

	assert.Equal(t, 60, r.count("input keyevent 20"))
	assert.Equal(t, 4, r.count("input tap 75 490"))
	assert.Equal(t, "[1/19] starting phase 2...", progress[0])
	assert.Equal(t, "[19/19] phase 2 complete", progress[len(progress)-1])
}

func TestBinarize(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.NRGBA{R: 250, G: 250, B: 250, A: 255})
	img.Set(1, 0, color.NRGBA{R: 90, G: 90, B: 90, A: 255})

	out := binarize(img, 200)
	r0, _, _, _ := out.At(0, 0).RGBA()
	r1, _, _, _ := out.At(1, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r0)
	assert.Equal(t, uint32(0), r1)
}

func TestExtractDigits(t *testing.T) {
	assert.Equal(t, "4273", extractDigits("42\n7 3"))
	assert.Equal(t, "", extractDigits("no code"))
}

func TestExecRunner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skip on windows: echo may not be available as an external command")
	}

	out, err := ExecRunner{Timeout: time.Second}.Run(context.Background(), "echo", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	_, err = ExecRunner{Timeout: time.Second}.Run(context.Background(), "/nonexistent/binary")
	assert.Error(t, err)
}

func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))
}
