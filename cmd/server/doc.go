// Coursemate - Learning Material Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursemate

/*
Command server runs the Coursemate recommendation HTTP service.

It serves "next material" recommendations to the learning portal from a
precomputed model bundle (an engagement matrix plus a user-user similarity
matrix) produced by the offline training job.

# Startup

 1. Configuration: .env (optional), config.yaml, environment (koanf v2)
 2. Logging: zerolog, JSON or console
 3. Cluster labels: Output_User_Clusters.csv (optional; missing users are "Unknown")
 4. Model bundle source: local file, http(s) URL or badger://<dir>
 5. Model store, loaded once at startup when MODEL_LOAD_ON_STARTUP=true
 6. Recommendation engine with its result cache
 7. Supervisor tree: HTTP server plus scheduled reloads (MODEL_RELOAD_SCHEDULE)

A failed startup load is not fatal. The server comes up, /api/recommend
answers with the fallback materials and readiness reports 503 until a
reload succeeds.

# Signals

SIGINT and SIGTERM cancel the supervisor tree. In-flight requests are
drained for up to 10 seconds and the bundle source is closed.

# Example

	export MODEL_SOURCE=/data/model_bundle.json.gz
	export CLUSTER_CSV_PATH=/data/Output_User_Clusters.csv
	export MODEL_RELOAD_SCHEDULE="@every 6h"
	./server
*/
package main
