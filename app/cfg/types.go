package cfg

import "time"

type Cfg struct {
	// Platform API
	APIKey           string
	AuthScheme       string
	BaseURL          string
	OverviewEndpoint string
	ResponseEndpoint string
	DonationEndpoint string
	RequestTimeout   time.Duration
	RequestDelay     time.Duration

	// Local storage
	DataDir   string
	StudyFile string
	DBPath    string
	PlotsDir  string

	// Processing
	WorkerCount int
	MaxRetries  int

	// Activity export
	InputDir     string
	OutputDir    string
	OverviewFile string

	// Monitoring API
	Port         string
	APIAccessKey string

	// Video metadata
	PoliticalVideosEndpoint string
	VideoGetEndpoint        string
	VideoPatchEndpoint      string
	Video                   VideoCommand

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

func (c *Cfg) DonationsDir() string {
	return c.DataDir + "/donations"
}

func (c *Cfg) OverviewDir() string {
	return c.DataDir + "/overview"
}

func (c *Cfg) LedgerPath() string {
	return c.OverviewDir() + "/donation_overview.json"
}

// VideoCommand is the subcommand selected on the videos binary together
// with its arguments.
type VideoCommand struct {
	Name string

	// pull
	Date     string
	Username string
	Output   string

	// list
	ParticipantIDs []string
	Year           int
	ListDir        string

	// get, update
	VideoIDs []string
	ListFile string
	Fields   map[string]string
}

func (c *Cfg) VideoListsDir() string {
	return c.DonationsDir() + "/video_lists"
}
