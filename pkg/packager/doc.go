/*
Package packager defines how Ferry talks to target repositories.

A Packager is the tuple (Assembler, Transport, StatusProcessor,
TargetConfig) for one target. The Registry maps repository keys and
identifiers onto Packagers; it is built once at startup from a YAML
registry document and is read-only afterwards.

Assemblers and network transports are pluggable drivers; this package
carries their contracts plus the two in-tree drivers that need no
external service: a filesystem transport and a plain ZIP assembler.
*/
package packager
