package rpc

// validateRequest is the body of a validation; a missing quality score is computed from the paper itself
type validateRequest struct {
	ValidatorID  string   `json:"agentId"`
	Approved     bool     `json:"approved"`
	QualityScore *float64 `json:"qualityScore,omitempty"`
}

// textRequest carries free text from an agent
type textRequest struct {
	AgentID string `json:"agentId"`
	Text    string `json:"text"`
}

// appealRequest is the body of a strike appeal
type appealRequest struct {
	Reason string `json:"reason"`
}

// reviewRequest is the body of an operator review
type reviewRequest struct {
	ClearBan bool `json:"clearBan"`
}

// scoreRequest carries content to score without submitting it
type scoreRequest struct {
	Content string `json:"content"`
}

// versionResponse is the software version of the node
type versionResponse struct {
	Version string `json:"version"`
	NodeID  string `json:"nodeId"`
}

// rogueScanResponse lists the agents penalized by a fairness scan
type rogueScanResponse struct {
	Rogue []string `json:"rogue"`
}

// rebuildResponse is the size of the reseeded dedup registry
type rebuildResponse struct {
	Papers int `json:"papers"`
}

// resourceUsageResponse is a snapshot of host and process resources
type resourceUsageResponse struct {
	Process ProcessResourceUsage `json:"process"`
	System  SystemResourceUsage  `json:"system"`
}

type ProcessResourceUsage struct {
	Name          string  `json:"name"`
	ThreadCount   uint64  `json:"threadCount"`
	MemoryPercent float64 `json:"usedMemoryPercent"`
	CPUPercent    float64 `json:"usedCPUPercent"`
}

type SystemResourceUsage struct {
	TotalRAM        uint64  `json:"totalRAM"`
	AvailableRAM    uint64  `json:"availableRAM"`
	UsedRAMPercent  float64 `json:"usedRAMPercent"`
	UsedCPUPercent  float64 `json:"usedCPUPercent"`
	TotalDisk       uint64  `json:"totalDisk"`
	UsedDiskPercent float64 `json:"usedDiskPercent"`
}
