// Package core holds the shared contracts of the RD Station integration:
// configuration, transport and credential value types, error envelopes and
// observability helpers. It must not depend on any other package of this
// module.
package core
