// Package config provides configuration parsing for viewmodel projects.
//
// The configuration is stored in viewmodel.json (comments and trailing
// commas allowed) or viewmodel.yaml at the project root. This package
// handles loading, saving, and validating configuration.
//
// # Configuration File Structure
//
//	{
//	  // Developer warnings and debug logging.
//	  "debug": true,
//	  "log": {"level": "debug", "format": "text"},
//	  "maxDepth": 1000,
//	  "scene": "scenes/todo.yaml",
//	  "devtools": {
//	    "addr": "localhost:7070",
//	    "shutdownTimeout": "5s"
//	  },
//	  "metrics": {"enabled": true, "namespace": "viewmodel"},
//	  "sources": {"s3Region": "eu-west-1"},
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	logger := cfg.Logger(os.Stderr)
package config
