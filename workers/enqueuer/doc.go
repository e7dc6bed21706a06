/*
Package enqueuer reconciles the metadata store with the completion ledger.

On start and then every ENQUEUER_INTERVAL it pages through every metadata
record and publishes one download job per listed version whose
(groupId, artifactId, repository, version) has no ledger entry. Jobs go to the
durable RABBITMQ_QUEUE as persistent JSON messages with a "type: download"
header.

With ADAPTER_LOCK=redis each published job also sets an in-flight marker that
expires after INFLIGHT_TTL; versions carrying a marker are not published
again until the downloader clears it or it expires. Without Redis a version
is republished on every pass until it is downloaded.
*/
package enqueuer
