package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Campos comunes en los logs de emisión y de la sesión con Facturify.
const (
	FieldInvoiceID = "invoice_id"
	FieldCFDIUUID  = "cfdi_uuid"
	FieldRFC       = "rfc"
	FieldClientID  = "client_id"
)

// Config opciones para el logger.
type Config struct {
	Env     string // development -> consola legible; cualquier otro -> JSON
	Level   string // trace, debug, info, warn, error
	Service string // se agrega como campo "service" en cada línea
}

// Logger wrapper sobre zerolog; cada colaborador pide su sublogger con Component.
type Logger struct {
	zl zerolog.Logger
}

// New crea el logger de la API o del CLI. Un nivel desconocido cae a info.
func New(cfg Config) *Logger {
	var w io.Writer = os.Stdout
	if cfg.Env == "development" {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	ctx := zerolog.New(w).Level(level).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str("service", cfg.Service)
	}
	zl := ctx.Logger()

	// pgx y go-redis no loguean por su cuenta; el global queda igual al nuestro.
	log.Logger = zl

	return &Logger{zl: zl}
}

// Nop logger silencioso para tests y CLI.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func (l *Logger) Debug() *zerolog.Event { return l.zl.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.zl.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.zl.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.zl.Error() }
func (l *Logger) Fatal() *zerolog.Event { return l.zl.Fatal() }

// Component sublogger etiquetado (facturify.auth, billing, http...).
func (l *Logger) Component(name string) zerolog.Logger {
	return l.zl.With().Str("component", name).Logger()
}

// Zerolog el logger interno.
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zl
}
