package auth

// Identity is the verified caller extracted from the auth context. The
// user key is the stable key all quota accounting hangs off.
type Identity struct {
	UserKey string
	Email   string
}

// ResolveIdentity derives the stable user key from verified claims. The
// subject id is preferred; the email claim is only a fallback for tokens
// minted without one. Callers relying on the fallback accept that a
// changed email fragments quota history.
func ResolveIdentity(claims *Claims) (Identity, error) {
	if claims == nil {
		return Identity{}, ErrNoIdentity
	}

	key := claims.Subject
	if key == "" {
		key = claims.Email
	}
	if key == "" {
		return Identity{}, ErrNoIdentity
	}

	return Identity{UserKey: key, Email: claims.Email}, nil
}
