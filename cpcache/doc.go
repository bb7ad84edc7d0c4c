// Package cpcache implements the inline resolution cache sitting between a
// bytecode interpreter and the symbolic resolver: one fixed-size Entry per
// distinguished member-access or invoke site, published lock-free so the
// interpreter's hot loop never blocks on a resolver it has already run
// once.
package cpcache
