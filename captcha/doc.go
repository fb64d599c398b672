// Package captcha issues and verifies CAPTCHA challenge tokens.
//
// A challenge is a short random text sealed into an encrypted [token.Captcha]
// token. The caller renders the text (rendering is out of scope here), sends the
// token along with the form, and later calls [Service.Verify] with the user's
// answer. Answers compare case-insensitively.
//
// A token that verified successfully is marked in a [UsedTokenCache] for the
// rest of its lifetime. Marking is atomic, so at most one concurrent verification
// of the same token succeeds; the others get [ErrAlreadyUsedToken].
//
// # What this package must NOT do
//
//   - Render images or audio.
//   - Count attempts; abuse counters live with the caller.
package captcha
