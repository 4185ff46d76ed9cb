// Package diag defines the finding model shared by every phase of the
// checker: severity levels, stable finding codes, the Bag collector and
// the Reporter interface that decouples producers from presentation.
package diag
