/*
Package crawler discovers what the other workers act on.

On start and then every CRAWLER_INTERVAL it runs one cycle over the roots
listed in CRAWLER_SEEDS_FILE:

 1. archetype-catalog.xml of every root is read and each entry is upserted
    into the archetype store. A root checked less than CRAWLER_MIN_RECHECK
    ago is skipped. With ADAPTER_LOCK=redis a root is crawled by one process
    at a time.
 2. maven-metadata.xml is fetched for every stored archetype coordinate and
    merged into the metadata store. A document whose lastUpdated is not newer
    than the stored one is ignored.
 3. The HTML listings below each root are walked, one goroutine per root, no
    deeper than CRAWLER_MAX_DEPTH, waiting CRAWLER_DELAY between requests.
    maven-metadata.xml files are merged like in step 2 and .pom files become
    version records.

Checksums, signatures, jars and aars are never fetched by the crawler.
*/
package crawler
