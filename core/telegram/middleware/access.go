package middleware

import tele "gopkg.in/telebot.v4"

// OperatorOptions decide who counts as an operator and what others get back.
type OperatorOptions struct {
	IsOperator func(userID int64) bool
	OnReject   tele.HandlerFunc
}

// OperatorOnlyMiddleware lets only operator accounts reach next.
func OperatorOnlyMiddleware(opts OperatorOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			u := c.Sender()
			if u == nil || opts.IsOperator == nil || !opts.IsOperator(u.ID) {
				if opts.OnReject != nil {
					return opts.OnReject(c)
				}
				return nil
			}
			return next(c)
		}
	}
}
