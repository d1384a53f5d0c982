package comments

import "context"

// Authenticator decides whether a delete request genuinely comes from
// the channel that owns the comment. Signature verification itself is
// owned by a separate trust component; this package only consumes the
// boolean outcome.
type Authenticator interface {
	Authenticate(ctx context.Context, commentID, channelName, channelID, signature string) (authorized bool, err error)
}

// AuthenticatorFunc adapts a plain function to the Authenticator
// interface.
type AuthenticatorFunc func(ctx context.Context, commentID, channelName, channelID, signature string) (bool, error)

func (fn AuthenticatorFunc) Authenticate(ctx context.Context, commentID, channelName, channelID, signature string) (bool, error) {
	return fn(ctx, commentID, channelName, channelID, signature)
}
