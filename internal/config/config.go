package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr             string        `env:"RUN_ADDRESS" env-default:"localhost:8081"`
	DatabaseURL      string        `env:"DATABASE_URI"`
	PrivateKey       string        `env:"PRIVATE_KEY" env-default:"privatekey"`
	TokenTTL         time.Duration `env:"TOKEN_TTL" env-default:"72h"`
	AuthDisabledURLs []string      `env:"AUTH_DISABLED_URLS" env-default:"/login,/register" env-separator:","`
	LogLevel         string        `env:"LOG_LEVEL" env-default:"info"`

	ProductsDir string `env:"PRODUCTS_DIR" env-default:"products"`
	UploadDir   string `env:"UPLOAD_DIR" env-default:"static/images"`

	Admin   Admin
	Device  Device
	Queue   Queue
	Voucher Voucher
}

type Admin struct {
	Login          string  `env:"ADMIN_LOGIN" env-default:"admin"`
	Password       string  `env:"ADMIN_PASSWORD"`
	InitialBalance float64 `env:"ADMIN_INITIAL_BALANCE" env-default:"0"`
}

type Device struct {
	ADBPath        string        `env:"ADB_PATH" env-default:"adb"`
	Host           string        `env:"ADB_HOST" env-default:"127.0.0.1"`
	EmulatorPorts  []int         `env:"ADB_EMULATOR_PORTS" env-default:"7555,5555,16384,62001,21503" env-separator:","`
	CommandTimeout time.Duration `env:"ADB_COMMAND_TIMEOUT" env-default:"30s"`
	GamePackage    string        `env:"GAME_PACKAGE" env-default:"com.linecorp.LGRGS"`
	PrefFilename   string        `env:"GAME_PREF_FILENAME" env-default:"_LINE_COCOS_PREF_KEY.xml"`
	TesseractPath  string        `env:"TESSERACT_PATH" env-default:"tesseract"`
	ScreenshotDir  string        `env:"SCREENSHOT_DIR" env-default:"screenshots"`
}

// TargetPath is where the game reads its login preferences from.
func (d Device) TargetPath() string {
	return path.Join("/data/data", d.GamePackage, "shared_prefs", d.PrefFilename)
}

type Queue struct {
	Capacity         int `env:"QUEUE_CAPACITY" env-default:"64"`
	SubscriberBuffer int `env:"SUBSCRIBER_BUFFER" env-default:"64"`
}

type Voucher struct {
	ProxyURL      string        `env:"VOUCHER_PROXY_URL" env-default:"https://truewalletproxy-755211536068837409.rcf2.deploys.app/api"`
	MerchantPhone string        `env:"VOUCHER_MERCHANT_PHONE"`
	Timeout       time.Duration `env:"VOUCHER_TIMEOUT" env-default:"15s"`
}

func Load() (*Config, error) {
	return load(flag.CommandLine, os.Args[1:])
}

func load(fset *flag.FlagSet, args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("couldn't read .env file: %w", err)
	}

	cfg := &Config{}

	err := cleanenv.ReadEnv(cfg)
	if err != nil {
		return nil, fmt.Errorf("couldn't read environment variables: %w", err)
	}

	addr := fset.String("a", "", "HTTP server address")
	dbURL := fset.String("d", "", "database URL")

	if err := fset.Parse(args); err != nil {
		return nil, err
	}

	if *addr != "" {
		cfg.Addr = *addr
	}
	if *dbURL != "" {
		cfg.DatabaseURL = *dbURL
	}

	return cfg, nil
}
