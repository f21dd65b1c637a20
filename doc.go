/*
Package main is the ssi-agent CLI. It manages local wallets and works as the
offline side of the credential exchange: DIDs, wallet backups, secure envelopes
and the presentation archive.

The packages can be used as a library too. A party is one wallet with its
issuer, holder, prover and verifier roles:

	p, err := party.Open(party.Config{
		Dir:    dir,
		Name:   "alice",
		Key:    key,
		Ledger: lc,
		Engine: local.New(),
		Create: true,
	})
	defer p.Close()

Schemas, cred defs and DIDs are read from a ledger gateway through a retrying
client (agent/ledger). Artifacts move between parties packed into envelopes
(agent/sec), and every party record lives in its own encrypted wallet
(enclave).

Every CLI flag can be given in an environment variable or in a config file,
see ssi-agent --help.
*/
package main
