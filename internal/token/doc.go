// Package token defines the token vocabulary of the annotated C
// subset: C keywords the checker understands, the memory_* annotation
// keywords (with their short aliases), punctuation and literals.
package token
