// Coursemate - Learning Material Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursemate

/*
Package supervisor runs the server's long-lived services under a suture v4
supervisor tree.

	coursemate
	├── model-layer
	│   └── ReloadService (if MODEL_RELOAD_SCHEDULE is set)
	└── api-layer
	    └── HTTPServerService

Crashed services restart with suture's exponential backoff. The two layers
count failures separately. Supervisor events are logged through sutureslog
into the process's zerolog logger (see logging.NewSlogLogger).

	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddAPIService(services.NewHTTPServerService(srv, addr, 10*time.Second))
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    logging.Error().Err(err).Msg("supervisor stopped")
	}
*/
package supervisor
