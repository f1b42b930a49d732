package device

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/axonake/RANGERSTORE/pkg/logger"
)

var ErrNoDevice = errors.New("no devices, please start the emulator")

const (
	KeyBack      = 4
	KeyDPadDown  = 20
	KeySpace     = 62
	KeyPageDown  = 93
	remoteScreen = "/sdcard/screenshot.png"
)

// Bridge talks to the emulator through the adb binary.
type Bridge struct {
	runner Runner
	adb    string
	host   string
	ports  []int
	sleep  func(context.Context, time.Duration) error

	mu     sync.Mutex
	serial string
}

func NewBridge(runner Runner, adbPath, host string, ports []int) *Bridge {
	return &Bridge{
		runner: runner,
		adb:    adbPath,
		host:   host,
		ports:  ports,
		sleep:  Sleep,
	}
}

func (b *Bridge) Serial() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.serial
}

func (b *Bridge) StartServer(ctx context.Context) error {
	if _, err := b.runner.Run(ctx, b.adb, "start-server"); err != nil {
		return fmt.Errorf("error starting adb server: %w", err)
	}
	return b.sleep(ctx, 2*time.Second)
}

// Connect selects the first attached device. When nothing is attached
// it tries the usual emulator ports on the configured host first.
func (b *Bridge) Connect(ctx context.Context) (string, error) {
	if err := b.StartServer(ctx); err != nil {
		return "", err
	}

	devices, err := b.Devices(ctx)
	if err != nil {
		return "", err
	}

	if len(devices) == 0 {
		logger.Log.Info("no attached devices, trying emulator ports", logger.String("host", b.host))
		for _, port := range b.ports {
			addr := b.host + ":" + strconv.Itoa(port)
			if out, err := b.runner.Run(ctx, b.adb, "connect", addr); err != nil {
				logger.Log.Debug("adb connect failed", logger.String("address", addr), logger.String("output", out), logger.Error(err))
			}
		}

		devices, err = b.Devices(ctx)
		if err != nil {
			return "", err
		}
	}

	if len(devices) == 0 {
		return "", ErrNoDevice
	}

	b.mu.Lock()
	b.serial = devices[0]
	b.mu.Unlock()

	logger.Log.Info("connected to device", logger.String("serial", devices[0]))
	return devices[0], nil
}

func (b *Bridge) Devices(ctx context.Context) ([]string, error) {
	out, err := b.runner.Run(ctx, b.adb, "devices")
	if err != nil {
		return nil, fmt.Errorf("error listing devices: %w", err)
	}
	return parseDevices(out), nil
}

func parseDevices(out string) []string {
	var serials []string
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == "device" {
			serials = append(serials, fields[0])
		}
	}
	return serials
}

func (b *Bridge) device(ctx context.Context) (string, error) {
	if serial := b.Serial(); serial != "" {
		return serial, nil
	}
	return b.Connect(ctx)
}

func (b *Bridge) Shell(ctx context.Context, command string) (string, error) {
	serial, err := b.device(ctx)
	if err != nil {
		return "", err
	}
	return b.runner.Run(ctx, b.adb, "-s", serial, "shell", command)
}

func (b *Bridge) ShellSU(ctx context.Context, command string) (string, error) {
	return b.Shell(ctx, "su -c "+shellQuote(command))
}

func (b *Bridge) Push(ctx context.Context, local, remote string) error {
	serial, err := b.device(ctx)
	if err != nil {
		return err
	}
	if _, err := b.runner.Run(ctx, b.adb, "-s", serial, "push", local, remote); err != nil {
		return fmt.Errorf("error pushing %s: %w", local, err)
	}
	return nil
}

func (b *Bridge) Pull(ctx context.Context, remote, local string) error {
	serial, err := b.device(ctx)
	if err != nil {
		return err
	}
	if _, err := b.runner.Run(ctx, b.adb, "-s", serial, "pull", remote, local); err != nil {
		return fmt.Errorf("error pulling %s: %w", remote, err)
	}
	return nil
}

func (b *Bridge) Tap(ctx context.Context, x, y int, delay time.Duration) error {
	if _, err := b.Shell(ctx, fmt.Sprintf("input tap %d %d", x, y)); err != nil {
		return err
	}
	return b.sleep(ctx, delay)
}

func (b *Bridge) Text(ctx context.Context, text string, delay time.Duration) error {
	if _, err := b.Shell(ctx, "input text "+shellQuote(escapeInput(text))); err != nil {
		return fmt.Errorf("error entering text: %w", err)
	}
	return b.sleep(ctx, delay)
}

// escapeInput prepares text for `input text`, which treats %s as a space.
func escapeInput(text string) string {
	return strings.ReplaceAll(text, " ", "%s")
}

// shellQuote wraps s in single quotes for the device shell. Nothing is
// special inside single quotes except the quote itself, which is closed,
// escaped and reopened.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func (b *Bridge) KeyEvent(ctx context.Context, code int, delay time.Duration) error {
	if _, err := b.Shell(ctx, "input keyevent "+strconv.Itoa(code)); err != nil {
		return err
	}
	return b.sleep(ctx, delay)
}

func (b *Bridge) Back(ctx context.Context, delay time.Duration) error {
	return b.KeyEvent(ctx, KeyBack, delay)
}

func (b *Bridge) PageDown(ctx context.Context, delay time.Duration) error {
	return b.KeyEvent(ctx, KeyPageDown, delay)
}

func (b *Bridge) ForceStop(ctx context.Context, pkg string) error {
	_, err := b.Shell(ctx, "am force-stop "+pkg)
	return err
}

func (b *Bridge) StartApp(ctx context.Context, pkg string) error {
	_, err := b.Shell(ctx, "monkey -p "+pkg+" -c android.intent.category.LAUNCHER 1")
	return err
}

func (b *Bridge) ShowTouches(ctx context.Context, on bool) error {
	v := "0"
	if on {
		v = "1"
	}
	if _, err := b.Shell(ctx, "settings put system show_touches "+v); err != nil {
		return err
	}
	_, err := b.Shell(ctx, "settings put system pointer_location "+v)
	return err
}

// Notify posts text as a notification on the emulator so whoever
// watches the screen can follow the script.
func (b *Bridge) Notify(ctx context.Context, text string) error {
	_, err := b.Shell(ctx, "cmd notification post -S bigtext -t 'LinkID' 'status' "+shellQuote(text))
	return err
}

// Screenshot captures the screen into local.
func (b *Bridge) Screenshot(ctx context.Context, local string) error {
	if _, err := b.Shell(ctx, "screencap -p "+remoteScreen); err != nil {
		return fmt.Errorf("error capturing screen: %w", err)
	}
	if err := b.Pull(ctx, remoteScreen, local); err != nil {
		return err
	}
	if _, err := b.Shell(ctx, "rm "+remoteScreen); err != nil {
		logger.Log.Warn("error removing remote screenshot", logger.Error(err))
	}
	return nil
}
