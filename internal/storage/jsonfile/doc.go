// Package jsonfile provides the file-backed persistence primitive for
// account databases.
//
// A File owns one path. Write replaces the document atomically (temp file in
// the same directory, fsync, rename) and is serialized by a mutex. Read
// returns the whole document, transparently opening sealed files.
//
// Besides the owner's structured document, a File carries keyed
// sub-documents: arbitrary JSON values stored as extra top-level keys of the
// same document. SaveKey and DeleteKey change them and notify the owner,
// who is expected to merge Extra into its next Write.
//
// Sealed layout:
//
//	[magic:8 "BVSEAL01"][salt:16][nonce||ciphertext]
//
// The magic and salt are bound as additional data. Plaintext files stay
// readable when a passphrase is configured; the next Write seals them.
package jsonfile
