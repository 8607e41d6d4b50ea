package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Platform API
	APIKey           string `long:"api-key" env:"API_KEY" description:"Project API token of the donation platform" required:"true"`
	AuthScheme       string `long:"auth-scheme" env:"AUTH_SCHEME" default:"Token" description:"Authorization scheme sent with the API token"`
	BaseURL          string `long:"base-url" env:"BASE_URL" description:"Base URL of the donation platform API" required:"true"`
	OverviewEndpoint string `long:"overview-endpoint" env:"OVERVIEW_ENDPOINT" default:"overview/" description:"Participation overview endpoint, relative to the base URL"`
	ResponseEndpoint string `long:"response-endpoint" env:"RESPONSE_ENDPOINT" default:"responses/" description:"Questionnaire responses endpoint, relative to the base URL"`
	DonationEndpoint string `long:"donation-endpoint" env:"DONATION_ENDPOINT" default:"donations/" description:"Per-participant donation endpoint, relative to the base URL"`
	RequestTimeout   int    `long:"request-timeout" env:"REQUEST_TIMEOUT" default:"20" description:"Timeout of a single API request in seconds"`
	RequestDelay     int    `long:"request-delay" env:"REQUEST_DELAY" default:"500" description:"Minimal delay between two API requests in milliseconds"`

	// Local storage
	DataDir   string `long:"data-dir" env:"DATA_DIR" default:"./data" description:"Directory holding donations, overviews and the run database"`
	StudyFile string `long:"study-file" env:"STUDY_FILE" default:"./study.yml" description:"Study definition file"`
	DBPath    string `long:"db-path" env:"DB_PATH" description:"SQLite run history database (default: <data-dir>/monitor.db)"`
	PlotsDir  string `long:"plots-dir" env:"PLOTS_DIR" default:"./plots" description:"Directory for generated charts"`

	// Processing
	WorkerCount int `long:"worker-count" env:"WORKER_COUNT" default:"1" description:"Number of workers processing participants"`
	MaxRetries  int `long:"max-retries" env:"MAX_RETRIES" default:"0" description:"Retries of a failed participant within one run"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Donation Monitor/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Europe/Berlin)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

type rawServerCfg struct {
	DataDir      string `long:"data-dir" env:"DATA_DIR" default:"./data" description:"Directory holding overviews and the run database"`
	StudyFile    string `long:"study-file" env:"STUDY_FILE" default:"./study.yml" description:"Study definition file"`
	DBPath       string `long:"db-path" env:"DB_PATH" description:"SQLite run history database (default: <data-dir>/monitor.db)"`
	PlotsDir     string `long:"plots-dir" env:"PLOTS_DIR" default:"./plots" description:"Directory with generated charts"`
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	Timezone     string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Europe/Berlin)"`
	Debug        bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load parses the pipeline configuration. A nil config with a nil error
// means help was requested.
func Load(args []string) (*Cfg, error) {
	var raw rawCfg

	if ok, err := parse(&raw, args); !ok || err != nil {
		return nil, err
	}

	c := &Cfg{
		APIKey:           raw.APIKey,
		AuthScheme:       raw.AuthScheme,
		BaseURL:          raw.BaseURL,
		OverviewEndpoint: raw.OverviewEndpoint,
		ResponseEndpoint: raw.ResponseEndpoint,
		DonationEndpoint: raw.DonationEndpoint,
		RequestTimeout:   time.Duration(raw.RequestTimeout) * time.Second,
		RequestDelay:     time.Duration(raw.RequestDelay) * time.Millisecond,
		DataDir:          raw.DataDir,
		StudyFile:        raw.StudyFile,
		DBPath:           raw.DBPath,
		PlotsDir:         raw.PlotsDir,
		WorkerCount:      raw.WorkerCount,
		MaxRetries:       raw.MaxRetries,
		UserAgent:        raw.UserAgent,
		Timezone:         raw.Timezone,
		Debug:            raw.Debug,
		Version:          GetVersion(),
	}

	if err := finish(c); err != nil {
		return nil, err
	}

	return c, nil
}

// LoadServer parses the configuration of the monitoring API, which needs
// no platform credentials.
func LoadServer(args []string) (*Cfg, error) {
	var raw rawServerCfg

	if ok, err := parse(&raw, args); !ok || err != nil {
		return nil, err
	}

	c := &Cfg{
		DataDir:      raw.DataDir,
		StudyFile:    raw.StudyFile,
		DBPath:       raw.DBPath,
		PlotsDir:     raw.PlotsDir,
		Port:         raw.Port,
		APIAccessKey: raw.APIAccessKey,
		Timezone:     raw.Timezone,
		Debug:        raw.Debug,
		Version:      GetVersion(),
		WorkerCount:  1,
	}

	if err := finish(c); err != nil {
		return nil, err
	}

	return c, nil
}

type rawReportCfg struct {
	DataDir   string `long:"data-dir" env:"DATA_DIR" default:"./data" description:"Directory holding the overview snapshots"`
	StudyFile string `long:"study-file" env:"STUDY_FILE" default:"./study.yml" description:"Study definition file"`
	PlotsDir  string `long:"plots-dir" env:"PLOTS_DIR" default:"./plots" description:"Directory for generated charts"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Europe/Berlin)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// LoadReport parses the configuration of the monitoring report.
func LoadReport(args []string) (*Cfg, error) {
	var raw rawReportCfg

	if ok, err := parse(&raw, args); !ok || err != nil {
		return nil, err
	}

	c := &Cfg{
		DataDir:     raw.DataDir,
		StudyFile:   raw.StudyFile,
		PlotsDir:    raw.PlotsDir,
		Timezone:    raw.Timezone,
		Debug:       raw.Debug,
		Version:     GetVersion(),
		WorkerCount: 1,
	}

	if err := finish(c); err != nil {
		return nil, err
	}

	return c, nil
}

type rawActivitiesCfg struct {
	InputDir     string `long:"input_dir" env:"INPUT_DIR" default:"data/donations" description:"Directory with cached raw donations"`
	OutputDir    string `long:"output_dir" env:"OUTPUT_DIR" default:"data/donations_as_csv" description:"Directory for the activity CSV files"`
	OverviewFile string `long:"overview_file" env:"OVERVIEW_FILE" default:"data/overview/usable_overview.csv" description:"Usable overview selecting the exported participants"`
	WorkerCount  int    `long:"workers" env:"WORKER_COUNT" default:"1" description:"Number of workers exporting donations"`
	Timezone     string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Europe/Berlin)"`
	Debug        bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// LoadActivities parses the configuration of the activity export. It works
// on local files only.
func LoadActivities(args []string) (*Cfg, error) {
	var raw rawActivitiesCfg

	if ok, err := parse(&raw, args); !ok || err != nil {
		return nil, err
	}

	c := &Cfg{
		InputDir:     raw.InputDir,
		OutputDir:    raw.OutputDir,
		OverviewFile: raw.OverviewFile,
		WorkerCount:  raw.WorkerCount,
		Timezone:     raw.Timezone,
		Debug:        raw.Debug,
		Version:      GetVersion(),
	}

	if err := finish(c); err != nil {
		return nil, err
	}

	return c, nil
}

func parse(data any, args []string) (bool, error) {
	return parseWith(flags.NewParser(data, flags.Default), args)
}

func parseWith(parser *flags.Parser, args []string) (bool, error) {
	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return false, nil
		}
		return false, fmt.Errorf("failed to parse configuration: %w", err)
	}

	return true, nil
}

func finish(c *Cfg) error {
	if c.DBPath == "" {
		c.DBPath = c.DataDir + "/monitor.db"
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("worker count must be at least 1, got %d", c.WorkerCount)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must be non-negative, got %d", c.MaxRetries)
	}
	if c.RequestDelay < 0 {
		return fmt.Errorf("request delay must be non-negative")
	}

	if err := applyTimezone(c.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", c.Timezone, err)
	}

	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		loc, err := time.LoadLocation(timezone)
		if err != nil {
			return err
		}
		time.Local = loc
	}
	return nil
}

type rawVideosCfg struct {
	AuthToken               string `long:"auth-token" env:"AUTH_TOKEN" description:"API token of the video metadata service"`
	AuthScheme              string `long:"auth-scheme" env:"AUTH_SCHEME" default:"Token" description:"Authorization scheme sent with the API token"`
	BaseURL                 string `long:"base-url" env:"BASE_URL" description:"Base URL for relative video endpoints"`
	PoliticalVideosEndpoint string `long:"political-videos-endpoint" env:"POLVIDEOS_ENDPOINT" description:"Paginated list of political videos"`
	VideoGetEndpoint        string `long:"video-get-endpoint" env:"VIDEO_GET_ENDPOINT" description:"Video metadata endpoint, the video ID is appended"`
	VideoPatchEndpoint      string `long:"video-patch-endpoint" env:"VIDEO_PATCH_ENDPOINT" description:"Video update endpoint, the video ID is appended"`
	RequestTimeout          int    `long:"request-timeout" env:"REQUEST_TIMEOUT" default:"20" description:"Timeout of a single API request in seconds"`
	RequestDelay            int    `long:"request-delay" env:"REQUEST_DELAY" default:"500" description:"Minimal delay between two API requests in milliseconds"`
	DataDir                 string `long:"data-dir" env:"DATA_DIR" default:"./data" description:"Directory holding donations and video lists"`
	WorkerCount             int    `long:"workers" env:"WORKER_COUNT" default:"1" description:"Number of workers writing video lists"`
	UserAgent               string `long:"user-agent" env:"USER_AGENT" default:"Donation Monitor/1.0" description:"User agent string for HTTP requests"`
	Timezone                string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Europe/Berlin)"`
	Debug                   bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`

	Pull struct {
		Date     string `long:"date" description:"Only videos of this date (YYYY-MM-DD)"`
		Username string `long:"username" description:"Only videos of this account"`
		Output   string `long:"output" description:"CSV file for the videos (default: <data-dir>/pol_videos.csv)"`
	} `command:"pull" description:"Download the political video list as CSV"`

	List struct {
		ParticipantIDs []string `long:"participant_id" description:"Participant to list, repeatable (default: every cached donation)"`
		Year           int      `long:"year" description:"Only videos watched in this year"`
		OutputDir      string   `long:"output_dir" description:"Directory for the lists (default: <data-dir>/donations/video_lists)"`
	} `command:"list" description:"Write the watched video IDs of cached donations"`

	Get struct {
		ListFile string `long:"from-list" description:"Video list CSV with one video ID per line"`
		Output   string `long:"output" description:"JSON file for the metadata (default: stdout)"`
		Args     struct {
			VideoIDs []string `positional-arg-name:"video-id"`
		} `positional-args:"yes"`
	} `command:"get" description:"Fetch video metadata"`

	Update struct {
		Fields map[string]string `long:"set" description:"Field to update as name:value, repeatable"`
		Args   struct {
			VideoID string `positional-arg-name:"video-id" required:"yes"`
		} `positional-args:"yes"`
	} `command:"update" description:"Update the metadata of one video"`
}

// LoadVideos parses the configuration of the video metadata tool and the
// selected subcommand.
func LoadVideos(args []string) (*Cfg, error) {
	var raw rawVideosCfg

	parser := flags.NewParser(&raw, flags.Default)
	if ok, err := parseWith(parser, args); !ok || err != nil {
		return nil, err
	}

	c := &Cfg{
		APIKey:                  raw.AuthToken,
		AuthScheme:              raw.AuthScheme,
		BaseURL:                 raw.BaseURL,
		PoliticalVideosEndpoint: raw.PoliticalVideosEndpoint,
		VideoGetEndpoint:        raw.VideoGetEndpoint,
		VideoPatchEndpoint:      raw.VideoPatchEndpoint,
		RequestTimeout:          time.Duration(raw.RequestTimeout) * time.Second,
		RequestDelay:            time.Duration(raw.RequestDelay) * time.Millisecond,
		DataDir:                 raw.DataDir,
		WorkerCount:             raw.WorkerCount,
		UserAgent:               raw.UserAgent,
		Timezone:                raw.Timezone,
		Debug:                   raw.Debug,
		Version:                 GetVersion(),
	}

	cmd := VideoCommand{Name: parser.Active.Name}
	switch cmd.Name {
	case "pull":
		cmd.Date = raw.Pull.Date
		cmd.Username = raw.Pull.Username
		cmd.Output = cmp.Or(raw.Pull.Output, c.DataDir+"/pol_videos.csv")
		if err := requireVideoAPI(c, "political-videos-endpoint", c.PoliticalVideosEndpoint); err != nil {
			return nil, err
		}
	case "list":
		cmd.ParticipantIDs = raw.List.ParticipantIDs
		cmd.Year = raw.List.Year
		cmd.ListDir = cmp.Or(raw.List.OutputDir, c.VideoListsDir())
		if cmd.Year < 0 {
			return nil, fmt.Errorf("year must be non-negative, got %d", cmd.Year)
		}
	case "get":
		cmd.VideoIDs = raw.Get.Args.VideoIDs
		cmd.ListFile = raw.Get.ListFile
		cmd.Output = raw.Get.Output
		if err := requireVideoAPI(c, "video-get-endpoint", c.VideoGetEndpoint); err != nil {
			return nil, err
		}
		if len(cmd.VideoIDs) == 0 && cmd.ListFile == "" {
			return nil, errors.New("get needs video IDs or --from-list")
		}
	case "update":
		cmd.VideoIDs = []string{raw.Update.Args.VideoID}
		cmd.Fields = raw.Update.Fields
		if err := requireVideoAPI(c, "video-patch-endpoint", c.VideoPatchEndpoint); err != nil {
			return nil, err
		}
		if len(cmd.Fields) == 0 {
			return nil, errors.New("update needs at least one --set name:value")
		}
	}
	c.Video = cmd

	if err := finish(c); err != nil {
		return nil, err
	}

	return c, nil
}

func requireVideoAPI(c *Cfg, flag, endpoint string) error {
	if c.APIKey == "" {
		return errors.New("the auth-token flag or AUTH_TOKEN is required")
	}
	if endpoint == "" {
		return fmt.Errorf("the %s flag is required", flag)
	}
	return nil
}
