// Package braille maps detected cells to Braille meanings and reconstructs text.
//
// # Grades
//
// Two detection models are supported. Grade 1 recognises single cells (letters,
// punctuation and the capital/number/dot-4 modifiers). Grade 2 recognises the
// Filipino contracted forms: whole-word shorthands, part-word fragments and
// two-cell forms introduced by the dot-5 prefix.
//
// # Tables
//
// Each grade has a Table keyed by the model-local class id. Default tables are
// embedded in the binary (tables/*.json); callers may load replacements with
// LoadTableFile. Tables are never modified after loading and are safe for
// concurrent readers.
//
// # Reading Order
//
// GroupIntoLines clusters cells into rows by vertical proximity and orders them
// top-to-bottom, left-to-right. GroupIntoWords splits a row into words wherever
// the horizontal gap between neighbours exceeds 1.5× the average cell width.
//
// # Transliteration
//
// A Transliterator walks the ordered lines once, applying the modifier cells:
//
//   - capital: uppercases the first character of the next eligible cell
//   - number: maps a–j to 1–0 until the end of the line
//   - dot-4 followed by n: composes ñ (Ñ when capitalised)
//   - dot-5: marks a two-cell Grade-2 form and renders nothing itself
//
// With Grade-2 output, recognised whole words are emitted as separate tokens,
// while part words fuse with neighbouring fragments into one surface word.
package braille
