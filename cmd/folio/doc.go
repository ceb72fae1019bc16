// Command folio runs and administers the portfolio content service.
//
// `folio serve` starts the long-running process (HTTP surface plus scheduled
// syncs). The remaining commands work directly against the configured content
// directory, history database and CMS: `sync` runs one pass, `status` and
// `history` report on previous passes, `logs` tails the daemon log, `setup`
// provisions the CMS databases and `config` scaffolds or validates the
// configuration file.
package main
