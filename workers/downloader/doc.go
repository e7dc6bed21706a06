/*
Package downloader consumes download jobs from the RabbitMQ queue and stores
the referenced artifacts.

Each job names one version of a library in one repository:

	{
	    "groupId": "log4j",
	    "artifactId": "log4j",
	    "repository": "https://repo1.maven.org/maven2",
	    "version": "1.2.17"
	}

The worker GETs the jar and, when the jar is missing, the aar. The payload is
streamed to the configured storage under "{groupId}.{artifactId}/" and the
completion ledger gets one entry per (groupId, artifactId, repository,
version). A job whose payload is already stored is acknowledged without a
fetch.

Acknowledgement

	success                      ack
	missing under both, transport
	or storage failures          requeue
	malformed or incomplete job  ack (dropped)

Layout

	├── cmd/                 # entry point, dependency wiring
	└── internal/worker/     # queue message handler

The download logic itself lives in shared/application/usecase/download so the
operator CLI can run it without the queue.

Configuration

	RABBITMQ_URL, RABBITMQ_QUEUE, RABBITMQ_PREFETCH_COUNT, RABBITMQ_TIMEOUT
	DOWNLOADER_CONCURRENCY, DOWNLOAD_TIMEOUT, HTTP_USER_AGENT
	ADAPTER_STORAGE (filesystem|s3), DOWNLOAD_FOLDER, S3_BUCKET, S3_PREFIX
	ADAPTER_DATABASE (postgres|mongo), ADAPTER_LOCK (none|redis), REDIS_URL
	OPS_ADDR for /healthz, /readyz and /metrics
*/
package downloader
