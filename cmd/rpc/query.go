package rpc

import (
	"net/http"
	"os"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/p2pclaw/hive/fsm"
	"github.com/p2pclaw/hive/reputation"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

const defaultListLimit = 50

// Version responds with the software version
func (s *Server) Version(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	write(w, versionResponse{Version: SoftwareVersion, NodeID: s.config.NodeID}, http.StatusOK)
}

// SubmitPaper submits a paper to the mempool
func (s *Server) SubmitPaper(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sub := new(fsm.Submission)
	if ok := s.unmarshal(w, r, sub); !ok {
		return
	}
	receipt, err := s.controller.SubmitPaper(r.Context(), *sub)
	if err != nil {
		writeErr(w, err)
		return
	}
	write(w, receipt, http.StatusOK)
}

// ValidatePaper applies a validator's judgement to a pending paper
func (s *Server) ValidatePaper(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	req := new(validateRequest)
	if ok := s.unmarshal(w, r, req); !ok {
		return
	}
	id := p.ByName("id")
	// without an explicit score the node scores the content itself
	if req.QualityScore == nil {
		paper, err := s.controller.GetPaper(r.Context(), id)
		if err != nil {
			writeErr(w, err)
			return
		}
		score := s.controller.ScorePaper(paper.Content).Score
		req.QualityScore = &score
	}
	result, err := s.controller.ValidatePaper(r.Context(), id, req.ValidatorID, req.Approved, *req.QualityScore)
	if err != nil {
		writeErr(w, err)
		return
	}
	write(w, result, http.StatusOK)
}

// Paper responds with the most authoritative copy of a paper
func (s *Server) Paper(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	paper, err := s.controller.GetPaper(r.Context(), p.ByName("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	write(w, paper, http.StatusOK)
}

// Mempool responds with the pending papers, newest first
func (s *Server) Mempool(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	write(w, s.controller.Mempool(r.Context(), listLimit(r)), http.StatusOK)
}

// Verified responds with the verified papers, newest first
func (s *Server) Verified(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	write(w, s.controller.Verified(r.Context(), listLimit(r)), http.StatusOK)
}

// Rank responds with the derived rank of an agent
func (s *Server) Rank(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	rank, err := s.controller.GetRank(r.Context(), p.ByName("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	write(w, rank, http.StatusOK)
}

// Agent responds with the profile of a known agent
func (s *Server) Agent(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	agent, err := s.controller.GetAgent(r.Context(), p.ByName("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	write(w, agent, http.StatusOK)
}

// Appeal pardons the newest strike of an agent that is not banned
func (s *Server) Appeal(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	req := new(appealRequest)
	if ok := s.unmarshal(w, r, req); !ok {
		return
	}
	result, err := s.controller.Appeal(r.Context(), p.ByName("id"), req.Reason)
	if err != nil {
		writeErr(w, err)
		return
	}
	write(w, result, http.StatusOK)
}

// Inspect runs text through the warden
func (s *Server) Inspect(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req := new(textRequest)
	if ok := s.unmarshal(w, r, req); !ok {
		return
	}
	verdict, err := s.controller.InspectText(r.Context(), req.AgentID, req.Text)
	if err != nil {
		writeErr(w, err)
		return
	}
	write(w, verdict, http.StatusOK)
}

// Heartbeat records a presence signal
func (s *Server) Heartbeat(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	hb := new(reputation.Heartbeat)
	if ok := s.unmarshal(w, r, hb); !ok {
		return
	}
	agent, err := s.controller.Heartbeat(r.Context(), *hb)
	if err != nil {
		writeErr(w, err)
		return
	}
	write(w, agent, http.StatusOK)
}

// Chat posts a chat message to the shared channel
func (s *Server) Chat(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req := new(textRequest)
	if ok := s.unmarshal(w, r, req); !ok {
		return
	}
	verdict, err := s.controller.Chat(r.Context(), req.AgentID, req.Text)
	if err != nil {
		writeErr(w, err)
		return
	}
	write(w, verdict, http.StatusOK)
}

// Score responds with the structural quality estimate of content
func (s *Server) Score(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req := new(scoreRequest)
	if ok := s.unmarshal(w, r, req); !ok {
		return
	}
	write(w, s.controller.ScorePaper(req.Content), http.StatusOK)
}

// RogueScan runs the fairness scan now
func (s *Server) RogueScan(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	write(w, rogueScanResponse{Rogue: s.controller.DetectRogueAgents(r.Context())}, http.StatusOK)
}

// Review is the operator path that pardons a strike and optionally lifts a ban
func (s *Server) Review(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	req := new(reviewRequest)
	if ok := s.unmarshal(w, r, req); !ok {
		return
	}
	verdict, err := s.controller.Review(r.Context(), p.ByName("id"), req.ClearBan)
	if err != nil {
		writeErr(w, err)
		return
	}
	write(w, verdict, http.StatusOK)
}

// Config responds with the node configuration
func (s *Server) Config(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	write(w, s.config, http.StatusOK)
}

// DedupRebuild reseeds the dedup registry from the graph
func (s *Server) DedupRebuild(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	write(w, rebuildResponse{Papers: s.controller.Dedup.Rebuild(r.Context())}, http.StatusOK)
}

// ResourceUsage responds with a snapshot of host and process resources
func (s *Server) ResourceUsage(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	pm, err := mem.VirtualMemory() // os memory
	if err != nil {
		write(w, err, http.StatusInternalServerError)
		return
	}
	cp, err := cpu.Percent(0, false) // os cpu percent
	if err != nil || len(cp) == 0 {
		write(w, err, http.StatusInternalServerError)
		return
	}
	d, err := disk.Usage(s.config.DataDirPath) // data directory disk
	if err != nil {
		write(w, err, http.StatusInternalServerError)
		return
	}
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		write(w, err, http.StatusInternalServerError)
		return
	}
	name, _ := p.Name()
	threads, _ := p.NumThreads()
	memPercent, _ := p.MemoryPercent()
	cpuPercent, _ := p.CPUPercent()
	write(w, resourceUsageResponse{
		Process: ProcessResourceUsage{
			Name:          name,
			ThreadCount:   uint64(threads),
			MemoryPercent: float64(memPercent),
			CPUPercent:    cpuPercent,
		},
		System: SystemResourceUsage{
			TotalRAM:        pm.Total,
			AvailableRAM:    pm.Available,
			UsedRAMPercent:  pm.UsedPercent,
			UsedCPUPercent:  cp[0],
			TotalDisk:       d.Total,
			UsedDiskPercent: d.UsedPercent,
		},
	}, http.StatusOK)
}

// listLimit parses the optional ?limit= query parameter
func listLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return defaultListLimit
	}
	return limit
}
