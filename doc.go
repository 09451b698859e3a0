// Package stacie derives STACIE credentials: per-user master keys,
// verification and ephemeral tokens, and per-realm keys used to seal data
// with AES-256-GCM.
//
// Every secret intermediate lives in memory obtained from a secure
// allocator. By default an Engine maps its own arena, locks it into RAM,
// brackets it with inaccessible guard pages and wipes every allocation on
// release.
//
// Basic usage:
//
//	engine, err := stacie.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Close()
//
//	salt, err := stacie.GenerateSalt()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	cred, err := engine.DeriveCredential([]byte("alice"), password, salt)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cred.Close()
//
//	// Store salt and the verification token; never the password.
//	token := cred.VerificationToken.Bytes()
//
// A later login calls Authenticate with the stored salt and token.
package stacie
