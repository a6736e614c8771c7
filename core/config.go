package core

import (
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Database struct {
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Engine        string
		Host          string
		Port          string
		Name          string
		DisableTLS    bool
	}

	Server struct {
		Host                      string
		Port                      string
		DebugHost                 string
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		ShutdownTimeout           time.Duration
		RequestTimeout            time.Duration
	}

	// Identity configures the identity provider backing Teacher, Student and Parent accounts.
	Identity struct {
		Provider  string // "local" | "hosted"
		BaseURL   string
		SecretKey string
	}

	// Policy holds the tunable thresholds of the entity actions.
	Policy struct {
		SubjectDeleteThreshold int
		ClassDeleteThreshold   int
		MaxClassCapacity       int
		TeacherDeleteTimeout   time.Duration
	}

	Config struct {
		Debug                     bool
		TestMode                  bool
		Env                       string
		Build                     string
		AppName                   string
		SecretKey                 string
		DefaultFromEmail          string
		FrontendBaseURL           string
		RollbarToken              string
		SendgridApiKey            string
		PasswordResetTimeoutDelta time.Duration
		ItemsPerPage              int
		DefaultClassID            int

		Database Database
		Server   Server
		Identity Identity
		Policy   Policy
	}
)

func (db Database) Address() string {
	return net.JoinHostPort(db.Host, db.Port)
}

func (srv Server) Address() string {
	return net.JoinHostPort(srv.Host, srv.Port)
}

// NewConfig loads the configuration of the current environment (ENV).
// Values come from the environment, optionally seeded from config/.env.<env>.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "Shule")
	v.SetDefault("secretKey", "k3n9-a8)zq1$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("itemsPerPage", 10)
	v.SetDefault("defaultClassID", 1)

	v.SetDefault("database_engine", "postgres")
	v.SetDefault("database_host", "localhost")
	v.SetDefault("database_port", "5432")
	v.SetDefault("database_name", "shule")
	v.SetDefault("database_user", "shule")
	v.SetDefault("database_password", "")
	v.SetDefault("database_adminUser", "postgres")
	v.SetDefault("database_adminPassword", "")
	v.SetDefault("database_disableTLS", true)

	v.SetDefault("server_host", "")
	v.SetDefault("server_port", "8000")
	v.SetDefault("server_debugHost", "localhost:4000")
	v.SetDefault("server_jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server_jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("server_shutdownTimeout", 5*time.Second)
	v.SetDefault("server_requestTimeout", 30*time.Second)

	v.SetDefault("identity_provider", "local")
	v.SetDefault("identity_baseURL", "")
	v.SetDefault("identity_secretKey", "")

	v.SetDefault("policy_subjectDeleteThreshold", 10)
	v.SetDefault("policy_classDeleteThreshold", 20)
	v.SetDefault("policy_maxClassCapacity", 50)
	v.SetDefault("policy_teacherDeleteTimeout", 10*time.Second)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Debug:                     v.GetBool("debug"),
		TestMode:                  v.GetBool("testMode"),
		Env:                       env,
		Build:                     v.GetString("build"),
		AppName:                   v.GetString("appName"),
		SecretKey:                 v.GetString("secretKey"),
		DefaultFromEmail:          v.GetString("defaultFromEmail"),
		FrontendBaseURL:           v.GetString("frontendBaseURL"),
		RollbarToken:              v.GetString("rollbarToken"),
		SendgridApiKey:            v.GetString("sendgridApiKey"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		ItemsPerPage:              v.GetInt("itemsPerPage"),
		DefaultClassID:            v.GetInt("defaultClassID"),
		Database: Database{
			User:          v.GetString("database_user"),
			Password:      v.GetString("database_password"),
			AdminUser:     v.GetString("database_adminUser"),
			AdminPassword: v.GetString("database_adminPassword"),
			Engine:        v.GetString("database_engine"),
			Host:          v.GetString("database_host"),
			Port:          v.GetString("database_port"),
			Name:          v.GetString("database_name"),
			DisableTLS:    v.GetBool("database_disableTLS"),
		},
		Server: Server{
			Host:                      v.GetString("server_host"),
			Port:                      v.GetString("server_port"),
			DebugHost:                 v.GetString("server_debugHost"),
			JWTExpirationDelta:        v.GetDuration("server_jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server_jwtRefreshExpirationDelta"),
			ShutdownTimeout:           v.GetDuration("server_shutdownTimeout"),
			RequestTimeout:            v.GetDuration("server_requestTimeout"),
		},
		Identity: Identity{
			Provider:  v.GetString("identity_provider"),
			BaseURL:   v.GetString("identity_baseURL"),
			SecretKey: v.GetString("identity_secretKey"),
		},
		Policy: Policy{
			SubjectDeleteThreshold: v.GetInt("policy_subjectDeleteThreshold"),
			ClassDeleteThreshold:   v.GetInt("policy_classDeleteThreshold"),
			MaxClassCapacity:       v.GetInt("policy_maxClassCapacity"),
			TeacherDeleteTimeout:   v.GetDuration("policy_teacherDeleteTimeout"),
		},
	}
}

// NewTestConfig returns the configuration used by package tests.
func NewTestConfig() *Config {
	_ = os.Setenv("ENV", "TEST")
	conf := NewConfig()
	conf.Debug = false
	conf.TestMode = true
	return conf
}
