// Package config reads the process's environment-variable
// configuration. The teacher's own cobra entrypoint favors plain
// struct fields populated at startup over a config-framework
// dependency; this package follows the same preference for its
// server and agent binaries.
package config

import (
	"os"
	"strconv"
	"time"
)

// Server is cmd/nexuscored's configuration.
type Server struct {
	ListenAddr string
	// ControlPlaneURL is this process's own externally-reachable
	// address, injected into node containers as API_URL so their
	// in-container heartbeat agent can reach back.
	ControlPlaneURL string
	StoreBackend string // "bolt" or "redis"
	BoltPath   string
	RedisAddr  string
	RedisPassword string
	RedisDB    int

	HostLoopInterval    time.Duration
	ClusterLoopInterval time.Duration
	LivenessThreshold   time.Duration

	LogLevel string
	LogJSON  bool
}

// LoadServer reads the server configuration from the environment,
// applying defaults matching spec.md §6's 30s/60s/300s intervals.
func LoadServer() Server {
	return Server{
		ListenAddr:      getEnv("LISTEN_ADDR", ":8080"),
		ControlPlaneURL: getEnv("CONTROL_PLANE_URL", "http://127.0.0.1:8080"),
		StoreBackend:    getEnv("STORE_BACKEND", "bolt"),
		BoltPath:        getEnv("BOLT_PATH", "./data"),
		RedisAddr:       getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),

		HostLoopInterval:    getEnvSeconds("HOST_LOOP_INTERVAL_SECONDS", 30),
		ClusterLoopInterval: getEnvSeconds("CLUSTER_LOOP_INTERVAL_SECONDS", 60),
		LivenessThreshold:   getEnvSeconds("LIVENESS_THRESHOLD_SECONDS", 300),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogJSON:  getEnvBool("LOG_JSON", false),
	}
}

// Agent is cmd/nexus-agent's configuration.
type Agent struct {
	APIURL        string
	NodeID        string
	NodeCPUCount  int
	NodeMemoryMB  int64
	HeartbeatInterval time.Duration
}

// LoadAgent reads the heartbeat agent's configuration from the
// environment, per spec.md §6 ("API_URL, NODE_CPU_COUNT,
// NODE_MEMORY_MB, NODE_ID (agent side)").
func LoadAgent() Agent {
	return Agent{
		APIURL:            getEnv("API_URL", "http://127.0.0.1:8080"),
		NodeID:            getEnv("NODE_ID", ""),
		NodeCPUCount:      getEnvInt("NODE_CPU_COUNT", 0),
		NodeMemoryMB:      int64(getEnvInt("NODE_MEMORY_MB", 0)),
		HeartbeatInterval: getEnvSeconds("HEARTBEAT_INTERVAL_SECONDS", 30),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvSeconds(key string, defSeconds int) time.Duration {
	return time.Duration(getEnvInt(key, defSeconds)) * time.Second
}
