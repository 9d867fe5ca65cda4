package config

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds all application configuration.
type Config struct {
	StorageURL  string
	WorkunitSize int
	NumCPUs     int
	UseOpenCL   bool

	RPCServer      bool
	RPCAddr        string
	RPCAnnounce    bool
	RPCKnownClients string

	UniqueCheck bool
	Debug       bool
}

// Load parses command line flags and environment variables to populate
// Config. Flags take precedence over environment variables.
func Load() *Config {
	cfg := &Config{}

	cfg.StorageURL = getEnv("PYRIT_STORAGE", "file://"+getDefaultBlobspace())
	cfg.WorkunitSize = int(getEnvFloat("PYRIT_WORKUNIT_SIZE", 75000))
	cfg.NumCPUs = int(getEnvFloat("PYRIT_CPUS", 0))
	cfg.UseOpenCL = getEnvBool("PYRIT_OPENCL", false)
	cfg.RPCServer = getEnvBool("PYRIT_RPC_SERVER", false)
	cfg.RPCAddr = getEnv("PYRIT_RPC_ADDR", ":17935")
	cfg.RPCAnnounce = getEnvBool("PYRIT_RPC_ANNOUNCE", true)
	cfg.RPCKnownClients = getEnv("PYRIT_RPC_KNOWN_CLIENTS", "")
	cfg.UniqueCheck = getEnvBool("PYRIT_UNIQUE_CHECK", true)

	flag.StringVar(&cfg.StorageURL, "storage", cfg.StorageURL, "Storage URL (file://path)")
	flag.IntVar(&cfg.WorkunitSize, "workunit-size", cfg.WorkunitSize, "Passwords per gathered workunit")
	flag.IntVar(&cfg.NumCPUs, "cpus", cfg.NumCPUs, "Number of CPU cores to use (0 = all)")
	flag.BoolVar(&cfg.UseOpenCL, "opencl", cfg.UseOpenCL, "Enable OpenCL cores if available")
	flag.BoolVar(&cfg.RPCServer, "rpc-server", cfg.RPCServer, "Expose this node's cores over RPC")
	flag.StringVar(&cfg.RPCAddr, "rpc-addr", cfg.RPCAddr, "Address to bind the RPC server")
	flag.BoolVar(&cfg.RPCAnnounce, "rpc-announce", cfg.RPCAnnounce, "Broadcast UDP presence announcements")
	flag.StringVar(&cfg.RPCKnownClients, "rpc-known-clients", cfg.RPCKnownClients, "Comma-separated host:port list of known RPC clients")
	flag.BoolVar(&cfg.UniqueCheck, "unique-check", cfg.UniqueCheck, "Skip passwords already present in the password store")
	flag.BoolVar(&cfg.Debug, "debug", false, "Enable verbose debug logging")

	flag.Parse()

	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getDefaultBlobspace returns the default filesystem storage path in the
// user's home directory, creating it if necessary (mirrors the source's
// ~/.pyrit/blobspace default).
func getDefaultBlobspace() string {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Printf("Warning: could not get user home directory, using current dir: %v", err)
		return ".pyrit/blobspace"
	}

	blobspace := filepath.Join(home, ".pyrit", "blobspace")
	if err := os.MkdirAll(blobspace, 0755); err != nil {
		log.Printf("Warning: could not create blobspace directory, using current dir: %v", err)
		return ".pyrit/blobspace"
	}
	return blobspace
}
