package goSSO

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goSSO/session"
	"github.com/MrEthical07/goSSO/signin"
	"github.com/MrEthical07/goSSO/token"
)

// NewSession issues an access/refresh pair for user and persists it.
// Unconfirmed users get the shorter refresh lifetime and are refused once
// their probation period has ended.
func (e *Engine) NewSession(ctx context.Context, user *User) (*session.AuthSession, error) {
	if e == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if err := e.checkProbation(user); err != nil {
		return nil, err
	}

	now := e.now()
	refreshTTL := e.refreshTTL(user)
	refresh, err := e.enc.Encrypt(token.NewRefreshToken(e.config.Token.Scope, user.ID, refreshTTL, now))
	if err != nil {
		return nil, err
	}

	sess, err := e.storeSession(ctx, user, refresh, refreshTTL)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventSessionCreated, true, user.ID, nil, nil)
	return sess, nil
}

// NewSessionByRefreshToken issues a new access token for the holder of a
// REFRESH token. The refresh token itself is kept, so its original expiry
// still bounds the session. A refresh token whose user was deleted is
// reported as expired.
func (e *Engine) NewSessionByRefreshToken(ctx context.Context, refreshToken string) (*session.AuthSession, error) {
	if e == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}

	var userID int64
	fail := func(err error) (*session.AuthSession, error) {
		e.metricInc(MetricSessionRefreshFailure)
		e.emitAudit(ctx, auditEventSessionRefreshFailure, false, userID, err, nil)
		return nil, err
	}

	tok, err := e.enc.DecryptType(refreshToken, token.Refresh)
	if err != nil {
		e.noteTokenError(ctx, "refresh", err)
		return fail(err)
	}
	userID, err = tokenUserID(tok)
	if err != nil {
		return fail(err)
	}

	user, err := e.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return fail(ErrExpiredToken)
		}
		return fail(err)
	}
	if !user.CanSignIn() {
		return fail(ErrSignInDisabled)
	}
	if err := e.checkProbation(user); err != nil {
		return fail(err)
	}

	remaining := tok.ExpiresAt().Sub(e.now())
	sess, err := e.storeSession(ctx, user, refreshToken, remaining)
	if err != nil {
		return fail(err)
	}

	e.metricInc(MetricSessionRefreshed)
	e.emitAudit(ctx, auditEventSessionRefreshed, true, user.ID, nil, nil)
	return sess, nil
}

// GetSession returns the session issued with accessToken.
func (e *Engine) GetSession(ctx context.Context, accessToken string) (*session.AuthSession, error) {
	if e == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}
	return e.sessions.Get(ctx, accessToken)
}

// RevokeSession deletes the session issued with accessToken. The access token
// itself stays valid until it expires.
func (e *Engine) RevokeSession(ctx context.Context, accessToken string) error {
	if e == nil || e.sessions == nil {
		return ErrEngineNotReady
	}
	return e.sessions.Delete(ctx, accessToken)
}

// SessionTokens returns the token pair of sess as handed to API clients.
func (e *Engine) SessionTokens(sess *session.AuthSession) SessionTokens {
	return SessionTokens{
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		ExpiresIn:    e.config.Token.AccessTTL,
	}
}

// DeleteExpiredSessions removes sessions whose access token has expired and
// returns how many were removed.
func (e *Engine) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	if e == nil || e.sessions == nil {
		return 0, ErrEngineNotReady
	}
	n, err := e.sessions.DeleteCreatedBefore(ctx, e.now().Add(-e.config.Token.AccessTTL))
	if n > 0 {
		e.metrics.Add(MetricSessionsSwept, uint64(n))
	}
	return n, err
}

// StartSessionSweeper runs [Engine.DeleteExpiredSessions] in the background,
// first after Session.SweepInitialDelay and then every Session.SweepInterval,
// until [Engine.Close]. Calling it again while running is a no-op.
func (e *Engine) StartSessionSweeper() {
	if e == nil || e.sessions == nil {
		return
	}

	e.sweepMu.Lock()
	defer e.sweepMu.Unlock()
	if e.sweepStop != nil {
		return
	}
	stop := make(chan struct{})
	e.sweepStop = stop

	e.sweepWG.Add(1)
	go func() {
		defer e.sweepWG.Done()

		timer := time.NewTimer(e.config.Session.SweepInitialDelay)
		defer timer.Stop()
		for {
			select {
			case <-stop:
				return
			case <-timer.C:
			}
			e.sweepOnce()
			timer.Reset(e.config.Session.SweepInterval)
		}
	}()
}

func (e *Engine) sweepOnce() {
	ctx := context.Background()
	if e.config.Session.SweepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Session.SweepTimeout)
		defer cancel()
	}

	n, err := e.DeleteExpiredSessions(ctx)
	if err != nil {
		e.logger.ErrorContext(ctx, "expired session sweep failed", "deleted", n, "error", err)
		return
	}
	e.logger.DebugContext(ctx, "expired sessions swept", "deleted", n)
}

func (e *Engine) stopSweeper() {
	e.sweepMu.Lock()
	stop := e.sweepStop
	e.sweepStop = nil
	e.sweepMu.Unlock()

	if stop != nil {
		close(stop)
		e.sweepWG.Wait()
	}
}

func (e *Engine) storeSession(ctx context.Context, user *User, refreshToken string, ttl time.Duration) (*session.AuthSession, error) {
	if ttl <= 0 {
		return nil, ErrExpiredToken
	}
	access, err := e.minter.MintAccessToken(ctx, signin.Principal{
		UserID: user.ID,
		Role:   string(user.EffectiveRole()),
	})
	if err != nil {
		return nil, err
	}

	sess := &session.AuthSession{
		AccessToken:  access,
		RefreshToken: refreshToken,
		UserID:       user.ID,
		Created:      e.now().Unix(),
	}
	if err := e.sessions.Save(ctx, sess, ttl); err != nil {
		return nil, err
	}
	return sess, nil
}

func (e *Engine) refreshTTL(user *User) time.Duration {
	if user.IsConfirmed() {
		return e.config.Token.RefreshTTL
	}
	return e.config.Token.UnconfirmedRefreshTTL
}

// checkProbation refuses unconfirmed users whose account is older than the
// unconfirmed refresh lifetime.
func (e *Engine) checkProbation(user *User) error {
	if e.config.Session.DisableProbation || user.IsConfirmed() {
		return nil
	}
	if user.Created.Add(e.config.Token.UnconfirmedRefreshTTL).Before(e.now()) {
		e.metricInc(MetricProbationEnded)
		return ErrProbationPeriodEnded
	}
	return nil
}
