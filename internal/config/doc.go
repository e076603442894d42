// Package config provides configuration parsing for the reactobj tools.
//
// The configuration is stored in reactobj.json in the working directory.
// This package handles loading, saving, and validating configuration.
//
// # Configuration File Structure
//
//	{
//	  "log": {
//	    "level": "info",
//	    "format": "text"
//	  },
//	  "metrics": {
//	    "enabled": true,
//	    "namespace": "reactobj"
//	  },
//	  "tracing": {
//	    "enabled": false,
//	    "tracerName": "github.com/vango-dev/reactobj"
//	  },
//	  "serve": {
//	    "address": "localhost:7070",
//	    "readBufferSize": 1024,
//	    "writeBufferSize": 1024,
//	    "allowedOrigins": ["http://localhost:3000"]
//	  },
//	  "store": {
//	    "initialDocument": "state.json",
//	    "maxFlushCycles": 100
//	  },
//	  "snapshots": {
//	    "dir": "snapshots",
//	    "maxSize": 10485760
//	  }
//	}
//
// Snapshots may live in S3 instead:
//
//	"snapshots": {
//	  "s3": {"bucket": "my-bucket", "prefix": "reactobj/", "region": "eu-west-1"}
//	}
//
// # Usage
//
//	cfg, err := config.LoadOrDefault(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	logger := cfg.NewLogger(os.Stderr)
package config
