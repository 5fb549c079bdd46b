// Coursemate - Learning Material Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursemate

/*
Package services provides suture.Service wrappers for the server's
long-running components.

HTTPServerService turns the blocking ListenAndServe/Shutdown pair of an
*http.Server into suture's context-aware Serve. Cancellation drains open
connections for up to the shutdown timeout.

ReloadService reloads the recommendation model on a cron schedule using
robfig/cron. Overlapping runs are skipped, panics inside a run are
recovered, and each run carries its own correlation ID in the logs:

	svc, err := services.NewReloadService(store, "@every 6h", 2*time.Minute)
	if err != nil {
	    return err
	}
	tree.AddModelService(svc)
*/
package services
