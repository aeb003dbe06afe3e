package obslog

import "go.uber.org/zap"

// zapLogger adapts go.uber.org/zap to the Logger seam, for deployments
// that want zap's sampling and structured-encoder machinery instead of
// log/slog's.
type zapLogger struct {
	l *zap.SugaredLogger
}

// NewZap builds a Logger backed by a production zap configuration.
// Callers that already manage a *zap.Logger should prefer WrapZap.
func NewZap() (Logger, error) {
	z, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return WrapZap(z), nil
}

// WrapZap adapts an existing *zap.Logger to the Logger seam.
func WrapZap(z *zap.Logger) Logger {
	return &zapLogger{l: z.Sugar()}
}

func (z *zapLogger) Debug(msg string, args ...any) { z.l.Debugw(msg, args...) }
func (z *zapLogger) Info(msg string, args ...any)  { z.l.Infow(msg, args...) }
func (z *zapLogger) Warn(msg string, args ...any)  { z.l.Warnw(msg, args...) }
func (z *zapLogger) Error(msg string, args ...any) { z.l.Errorw(msg, args...) }
func (z *zapLogger) With(args ...any) Logger       { return &zapLogger{l: z.l.With(args...)} }
