// Package password hashes and verifies user passwords with argon2id.
//
// # Output format
//
// Hashes are PHC strings with unpadded standard base64 salt and key:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Argon2.NeedsUpgrade] reports hashes produced with weaker parameters so the
// caller can rehash after the next successful sign-in.
//
// # Architecture boundaries
//
// This package owns hashing only. Length and repeat rules for new passwords
// are enforced by the engine.
//
// # What this package must NOT do
//
//   - Store or load hashes.
//   - Import any other goSSO package.
//   - Log passwords or hash material.
package password
