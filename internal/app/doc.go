// Package app wires the grievance dashboard together and manages its lifecycle.
//
// # Initialization Flow
//
//	1. Logging and OpenTelemetry from the loaded configuration
//	2. Source chain: byte cache (memory or Redis), URL client, Google Sheets
//	3. Dashboard, health and websocket services
//	4. Router and middleware
//	5. HTTP server, optional auto refresh, graceful shutdown
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	application, err := app.NewApplication(cfg, services.BuildInfo{Version: version})
//	if err != nil {
//	    return err
//	}
//	return application.Run()
package app
