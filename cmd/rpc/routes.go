package rpc

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// Hive RPC Paths
const (
	VersionRoutePath       = "/v1/version"
	SubmitPaperRoutePath   = "/v1/papers"
	ValidatePaperRoutePath = "/v1/papers/:id/validate"
	PaperRoutePath         = "/v1/papers/:id"
	MempoolRoutePath       = "/v1/mempool"
	VerifiedRoutePath      = "/v1/verified"
	RankRoutePath          = "/v1/agents/:id/rank"
	AgentRoutePath         = "/v1/agents/:id"
	AppealRoutePath        = "/v1/agents/:id/appeal"
	InspectRoutePath       = "/v1/inspect"
	HeartbeatRoutePath     = "/v1/heartbeat"
	ChatRoutePath          = "/v1/chat"
	ScoreRoutePath         = "/v1/score"
	RogueScanRoutePath     = "/v1/admin/rogue-scan"
	ReviewRoutePath        = "/v1/admin/agents/:id/review"
	ConfigRoutePath        = "/v1/admin/config"
	DedupRebuildRoutePath  = "/v1/admin/dedup-rebuild"
	ResourceUsageRoutePath = "/v1/admin/resource-usage"
)

const (
	VersionRouteName       = "version"
	SubmitPaperRouteName   = "submit-paper"
	ValidatePaperRouteName = "validate-paper"
	PaperRouteName         = "paper"
	MempoolRouteName       = "mempool"
	VerifiedRouteName      = "verified"
	RankRouteName          = "rank"
	AgentRouteName         = "agent"
	AppealRouteName        = "appeal"
	InspectRouteName       = "inspect"
	HeartbeatRouteName     = "heartbeat"
	ChatRouteName          = "chat"
	ScoreRouteName         = "score"
	RogueScanRouteName     = "rogue-scan"
	ReviewRouteName        = "review"
	ConfigRouteName        = "config"
	DedupRebuildRouteName  = "dedup-rebuild"
	ResourceUsageRouteName = "resource-usage"
)

// routes contains the method and path for a hive RPC route
type routes map[string]struct {
	Method string
	Path   string
}

// routePaths is a mapping from route names to their corresponding HTTP methods and paths
var routePaths = routes{
	VersionRouteName:       {Method: http.MethodGet, Path: VersionRoutePath},
	SubmitPaperRouteName:   {Method: http.MethodPost, Path: SubmitPaperRoutePath},
	ValidatePaperRouteName: {Method: http.MethodPost, Path: ValidatePaperRoutePath},
	PaperRouteName:         {Method: http.MethodGet, Path: PaperRoutePath},
	MempoolRouteName:       {Method: http.MethodGet, Path: MempoolRoutePath},
	VerifiedRouteName:      {Method: http.MethodGet, Path: VerifiedRoutePath},
	RankRouteName:          {Method: http.MethodGet, Path: RankRoutePath},
	AgentRouteName:         {Method: http.MethodGet, Path: AgentRoutePath},
	AppealRouteName:        {Method: http.MethodPost, Path: AppealRoutePath},
	InspectRouteName:       {Method: http.MethodPost, Path: InspectRoutePath},
	HeartbeatRouteName:     {Method: http.MethodPost, Path: HeartbeatRoutePath},
	ChatRouteName:          {Method: http.MethodPost, Path: ChatRoutePath},
	ScoreRouteName:         {Method: http.MethodPost, Path: ScoreRoutePath},
	RogueScanRouteName:     {Method: http.MethodPost, Path: RogueScanRoutePath},
	ReviewRouteName:        {Method: http.MethodPost, Path: ReviewRoutePath},
	ConfigRouteName:        {Method: http.MethodGet, Path: ConfigRoutePath},
	DedupRebuildRouteName:  {Method: http.MethodPost, Path: DedupRebuildRoutePath},
	ResourceUsageRouteName: {Method: http.MethodGet, Path: ResourceUsageRoutePath},
}

// httpRouteHandlers is a custom type that maps strings to httprouter handle functions
type httpRouteHandlers map[string]httprouter.Handle

// createRouter initializes and returns a new HTTP router with predefined route handlers.
func createRouter(s *Server) *httprouter.Router {
	var r = httpRouteHandlers{
		VersionRouteName:       s.Version,
		SubmitPaperRouteName:   s.SubmitPaper,
		ValidatePaperRouteName: s.ValidatePaper,
		PaperRouteName:         s.Paper,
		MempoolRouteName:       s.Mempool,
		VerifiedRouteName:      s.Verified,
		RankRouteName:          s.Rank,
		AgentRouteName:         s.Agent,
		AppealRouteName:        s.Appeal,
		InspectRouteName:       s.Inspect,
		HeartbeatRouteName:     s.Heartbeat,
		ChatRouteName:          s.Chat,
		ScoreRouteName:         s.Score,
		RogueScanRouteName:     s.RogueScan,
		ReviewRouteName:        s.Review,
		ConfigRouteName:        s.Config,
		DedupRebuildRouteName:  s.DedupRebuild,
		ResourceUsageRouteName: s.ResourceUsage,
	}

	// Initialize a new router using the httprouter package.
	router := httprouter.New()

	for name, handler := range r {
		// Retrieve the path configuration for the current route name.
		path := routePaths[name]

		// Add the handler for the specific path and HTTP method to the router.
		router.Handle(path.Method, path.Path, s.limit(handler))
	}

	return router
}
