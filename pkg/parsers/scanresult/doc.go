/*
Package scanresult parses machine-generated scan output (JSON or JSONL) and
normalizes each record into a vulnerability.Finding.

# Input Formats

Only two file extensions are accepted:

	.json   a JSON array of objects, or a single object (treated as one record)
	.jsonl  one JSON object per non-blank line

Any other extension is rejected by DetectFormat before the content is read.

# Basic Usage

	format, err := scanresult.DetectFormat("nuclei-output.jsonl")
	if err != nil {
		return err // wraps scanresult.ErrUnsupportedFormat
	}

	parser := scanresult.NewParser(nil)
	records, lineErrs, err := parser.Parse(format, data)
	if err != nil {
		return err // the whole document was unreadable
	}

	for _, rec := range records {
		finding, err := parser.Normalize(batchID, rec.Fields, time.Now())
		...
	}

A malformed .json document fails as a whole. A malformed line in a .jsonl
stream yields a LineError for that line and parsing continues.

# Field Extraction

Each canonical Finding field has an ordered list of source keys. Keys are
matched case-insensitively and may be dotted paths into nested objects
(e.g. "info.severity"). The first non-empty value wins:

	severity      info.severity, severity                   -> "info"
	templateID    template-id, templateID, template_id,
	              template, id                              -> "unknown"
	host          host, hostname, ip, target                -> "unknown"
	matchedAt     matched-at, matchedAt, matched_at,
	              timestamp (first value that parses)       -> ingest time
	contentHash   hash, content-hash, fingerprint           -> sha256(host|template|ingest time)

Unrecognized severity text normalizes to "info". NUL characters are dropped
from every extracted value, and a leading UTF-8 byte order mark is ignored.
*/
package scanresult
