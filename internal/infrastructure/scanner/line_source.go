package scanner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jhoicas/scanner-bridge/internal/application/ports"
	"github.com/jhoicas/scanner-bridge/internal/domain/entity"
)

var _ ports.ScanSource = (*LineSource)(nil)

// StdinDevice valor de SCANNER_DEVICE que lee de la entrada estándar.
const StdinDevice = "-"

// LineSource lector tipo teclado o puerto serie: un código por línea.
type LineSource struct {
	name    string
	r       io.Reader
	guid    string
	handler ports.ScanHandler
	log     zerolog.Logger
}

// NewLineSource crea un origen sobre cualquier io.Reader. Si r implementa io.Closer se cierra
// al cancelar el contexto para desbloquear la lectura.
func NewLineSource(name string, r io.Reader, guid string, log zerolog.Logger) *LineSource {
	return &LineSource{
		name: name,
		r:    r,
		guid: guid,
		log:  log.With().Str("component", "line_source").Str("source", name).Logger(),
	}
}

// OpenDevice abre el dispositivo indicado ("-" es stdin).
func OpenDevice(path, guid string, log zerolog.Logger) (*LineSource, error) {
	if path == StdinDevice {
		return NewLineSource("stdin", os.Stdin, guid, log), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scanner: abrir %s: %w", path, err)
	}
	return NewLineSource(path, f, guid, log), nil
}

func (s *LineSource) Name() string { return s.name }

func (s *LineSource) OnScan(handler ports.ScanHandler) { s.handler = handler }

// Run lee líneas hasta fin de entrada (devuelve nil) o cancelación (devuelve ctx.Err()).
func (s *LineSource) Run(ctx context.Context) error {
	if s.handler == nil {
		return fmt.Errorf("scanner: %s sin manejador registrado", s.name)
	}

	done := make(chan struct{})
	defer close(done)
	if c, ok := s.r.(io.Closer); ok {
		go func() {
			select {
			case <-ctx.Done():
				_ = c.Close()
			case <-done:
			}
		}()
	}

	sc := bufio.NewScanner(s.r)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		// Los lectores en modo teclado terminan en \r\n.
		barcode := strings.TrimSpace(sc.Text())
		if barcode == "" {
			continue
		}
		s.handler(entity.ScanEvent{
			ScannerGUID: s.guid,
			Barcode:     barcode,
			Source:      entity.ScanSourceDevice,
		})
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("scanner: lectura de %s: %w", s.name, err)
	}
	s.log.Info().Msg("fin de entrada del lector")
	return nil
}
