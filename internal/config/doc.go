// Package config loads the recorder's two configuration sources.
//
// The device file is the JSON map shared with the viewer:
//
//	{
//	  "a4:c1:38:12:34:56": {"counter": 0, "loc": "Living room"}
//	}
//
// Comments and trailing commas are tolerated. The counter value is accepted
// for compatibility and otherwise ignored.
//
// Runtime settings come from an optional YAML file:
//
//	devices: config.json
//	logs_dir: logs
//	stale_after: 10m
//	storage:
//	  driver: sqlite     # sqlite (pure Go), sqlite3 (cgo)
//	  timeout: 5s
//	  busy_timeout: 5s
//	logging:
//	  level: info        # debug, info, warn, error
//	  format: text       # json, text
//	  output: error.log  # stdout, stderr or a file path
//
// MIJIA_DEVICES, MIJIA_LOGS_DIR and MIJIA_LOG_LEVEL override the file.
package config
