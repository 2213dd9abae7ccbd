package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/nexuscore/nexuscore/pkg/storage"
	"github.com/nexuscore/nexuscore/pkg/types"
	"github.com/nexuscore/nexuscore/pkg/usage"
)

type createNodeRequest struct {
	CPUCount int    `json:"cpu_count"`
	MemoryMB *int64 `json:"memory_mb,omitempty"`
}

func (s *Server) createNode(w http.ResponseWriter, r *http.Request) {
	var req createNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmtInvalid("malformed request body"))
		return
	}
	if req.CPUCount < 1 {
		writeError(w, fmtInvalid("cpu_count must be >= 1"))
		return
	}
	memoryMB := int64(0)
	if req.MemoryMB != nil {
		memoryMB = *req.MemoryMB
	}

	node, err := s.nodes.Create(r.Context(), req.CPUCount, memoryMB)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, node)
}

func (s *Server) listNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.nodes.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nodes)
}

func (s *Server) getNode(w http.ResponseWriter, r *http.Request) {
	node, err := s.nodes.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

type updateStatusRequest struct {
	Status types.NodeStatus `json:"status"`
}

func (s *Server) updateNodeStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Status.Valid() {
		writeError(w, fmtInvalid("status must be one of online, offline"))
		return
	}
	node, err := s.nodes.UpdateStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	if node == nil {
		writeError(w, fmtNotFound("node"))
		return
	}
	writeJSON(w, http.StatusOK, node)
}

func (s *Server) updateNodeResources(w http.ResponseWriter, r *http.Request) {
	var observed types.NodeResources
	if err := json.NewDecoder(r.Body).Decode(&observed); err != nil {
		writeError(w, fmtInvalid("malformed resources body"))
		return
	}
	node, err := s.nodes.UpdateResources(r.Context(), r.PathValue("id"), observed)
	if err != nil {
		writeError(w, err)
		return
	}
	if node == nil {
		writeError(w, fmtNotFound("node"))
		return
	}
	writeJSON(w, http.StatusOK, node)
}

func (s *Server) stopNode(w http.ResponseWriter, r *http.Request) {
	node, err := s.nodes.Stop(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

func (s *Server) restartNode(w http.ResponseWriter, r *http.Request) {
	node, err := s.nodes.Restart(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

// shutdownNode handles a node's graceful-shutdown notification the
// same way cleanup_node does: reclaim its pods and mark it offline,
// without touching the container itself (the node is shutting its
// own process down).
func (s *Server) shutdownNode(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.fault.CleanupNode(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "node " + id + " shutdown handled successfully"})
}

func (s *Server) deleteNode(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.nodes.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "node " + id + " deleted successfully"})
}

func (s *Server) listNodePods(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.nodes.Get(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	pods, err := s.store.ListNodePods(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pods)
}

type nodeResourcesView struct {
	CPUAvailable             float64 `json:"cpu_available"`
	MemoryAvailable          int64   `json:"memory_available"`
	TotalCPU                 int     `json:"total_cpu"`
	TotalMemory              int64   `json:"total_memory"`
	UsedCPU                  float64 `json:"used_cpu"`
	UsedMemory               int64   `json:"used_memory"`
	CPUUtilizationPercent    float64 `json:"cpu_utilization_percent"`
	MemoryUtilizationPercent float64 `json:"memory_utilization_percent"`
}

func (s *Server) getNodeResources(w http.ResponseWriter, r *http.Request) {
	node, err := s.nodes.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	usedCPU, usedMem, err := usage.Of(r.Context(), s.store, node.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	availCPU, availMem := usage.Available(node, usedCPU, usedMem)
	cpuPct, memPct := usage.UtilizationPercent(node, usedCPU, usedMem)

	writeJSON(w, http.StatusOK, nodeResourcesView{
		CPUAvailable:             availCPU,
		MemoryAvailable:          availMem,
		TotalCPU:                 node.Resources.CPUCount,
		TotalMemory:              node.Resources.MemoryTotalBytes,
		UsedCPU:                  usedCPU,
		UsedMemory:               usedMem,
		CPUUtilizationPercent:    cpuPct,
		MemoryUtilizationPercent: memPct,
	})
}

type createPodRequest struct {
	Name      string             `json:"name"`
	Resources types.PodResources `json:"resources"`
}

func (s *Server) createPod(w http.ResponseWriter, r *http.Request) {
	var req createPodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmtInvalid("malformed request body"))
		return
	}
	if err := req.Resources.Validate(); err != nil {
		writeError(w, fmtInvalid(err.Error()))
		return
	}

	pod := &types.Pod{
		ID:        newPodID(),
		Name:      req.Name,
		Status:    types.PodStatusPending,
		Resources: req.Resources,
		CreatedAt: time.Now(),
	}

	node, ok, err := s.sched.Schedule(r.Context(), pod)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		if err := s.store.PutPod(r.Context(), pod); err != nil {
			writeError(w, err)
			return
		}
		if err := s.store.AddToSet(r.Context(), storage.SetPods, pod.ID); err != nil {
			writeError(w, err)
			return
		}
		writeError(w, fmtNoCapacity("no node has sufficient cpu and memory"))
		return
	}

	if err := s.sched.Commit(r.Context(), pod, node); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pod)
}

func (s *Server) listPods(w http.ResponseWriter, r *http.Request) {
	pods, err := s.store.ListPods(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pods)
}

func (s *Server) getPod(w http.ResponseWriter, r *http.Request) {
	pod, found, err := s.store.GetPod(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !found {
		writeError(w, fmtNotFound("pod"))
		return
	}
	writeJSON(w, http.StatusOK, pod)
}

func (s *Server) deletePod(w http.ResponseWriter, r *http.Request) {
	pod, found, err := s.store.GetPod(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !found {
		writeError(w, fmtNotFound("pod"))
		return
	}
	if err := s.store.DeletePod(r.Context(), pod); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type heartbeatRequest struct {
	Resources types.NodeResources `json:"resources"`
	Status    types.NodeStatus    `json:"status"`
}

// heartbeat reconciles a node's observed resources and marks it
// online, the agent-facing endpoint behind in-container heartbeats.
func (s *Server) heartbeat(w http.ResponseWriter, r *http.Request) {
	var req heartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmtInvalid("malformed heartbeat body"))
		return
	}
	if req.Status == "" {
		req.Status = types.NodeStatusOnline
	}

	id := r.PathValue("id")
	node, err := s.nodes.UpdateResources(r.Context(), id, req.Resources)
	if err != nil {
		writeError(w, err)
		return
	}
	if node == nil {
		writeError(w, fmtNotFound("node"))
		return
	}
	if req.Status == types.NodeStatusOnline {
		if _, err := s.nodes.UpdateStatus(r.Context(), id, types.NodeStatusOnline); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"received": true, "message": "resource metrics updated successfully"})
}

type resourceUtilization struct {
	CPUUtilization    float64 `json:"cpu_utilization"`
	MemoryUtilization float64 `json:"memory_utilization"`
}

type clusterHealthView struct {
	TotalNodes               int                            `json:"total_nodes"`
	OnlineNodes              int                            `json:"online_nodes"`
	TotalCPUCores            int                            `json:"total_cpu_cores"`
	TotalMemoryGB            float64                        `json:"total_memory_gb"`
	AverageCPUUtilization    float64                        `json:"average_cpu_utilization"`
	AverageMemoryUtilization float64                        `json:"average_memory_utilization"`
	NodesUtilization         map[string]resourceUtilization `json:"nodes_utilization"`
}

func (s *Server) clusterHealth(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.nodes.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if len(nodes) == 0 {
		writeError(w, fmtNotFound("no nodes found in cluster"))
		return
	}

	view := clusterHealthView{
		TotalNodes:       len(nodes),
		NodesUtilization: make(map[string]resourceUtilization),
	}

	var totalCPUUtil, totalMemUtil float64
	for _, node := range nodes {
		if node.Status != types.NodeStatusOnline {
			continue
		}
		view.OnlineNodes++
		view.TotalCPUCores += node.Resources.CPUCount
		view.TotalMemoryGB += float64(node.Resources.MemoryTotalBytes) / (1 << 30)

		usedCPU, usedMem, err := usage.Of(r.Context(), s.store, node.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		cpuPct, memPct := usage.UtilizationPercent(node, usedCPU, usedMem)
		view.NodesUtilization[node.ID] = resourceUtilization{CPUUtilization: cpuPct, MemoryUtilization: memPct}
		totalCPUUtil += cpuPct
		totalMemUtil += memPct
	}
	if view.OnlineNodes > 0 {
		view.AverageCPUUtilization = totalCPUUtil / float64(view.OnlineNodes)
		view.AverageMemoryUtilization = totalMemUtil / float64(view.OnlineNodes)
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) nodeHealth(w http.ResponseWriter, r *http.Request) {
	node, err := s.nodes.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if node.Status != types.NodeStatusOnline {
		writeError(w, fmtInvalid("node is not online"))
		return
	}
	usedCPU, usedMem, err := usage.Of(r.Context(), s.store, node.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	cpuPct, memPct := usage.UtilizationPercent(node, usedCPU, usedMem)
	writeJSON(w, http.StatusOK, resourceUtilization{CPUUtilization: cpuPct, MemoryUtilization: memPct})
}

func (s *Server) getHostResources(w http.ResponseWriter, r *http.Request) {
	host, err := s.hostmon.Get(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, host)
}

func (s *Server) updateHostLimits(w http.ResponseWriter, r *http.Request) {
	var limits types.ResourceLimits
	if err := json.NewDecoder(r.Body).Decode(&limits); err != nil {
		writeError(w, fmtInvalid("malformed limits body"))
		return
	}
	host, err := s.hostmon.UpdateLimits(r.Context(), limits)
	if err != nil {
		writeError(w, fmtInvalidWrap(err))
		return
	}
	writeJSON(w, http.StatusOK, host)
}
