package session

import (
	"fmt"

	"github.com/minios-linux/locsheet/exporter"
)

// ExportHandler receives the outcome of Export. Exactly one of the two
// is called.
type ExportHandler struct {
	Done   func(exporter.Report)
	Failed func(error)
}

// Export writes every loaded group to dest in the background. The groups
// are copied before Export returns, so later loads and edits do not show
// up in the file. A failure after some sheets were written still leaves
// those sheets in dest and is reported through Failed.
func (s *Session) Export(dest string, resume Resumer, h ExportHandler) {
	deliver := func(rep exporter.Report, err error) {
		resume.Resume(func() {
			if err != nil {
				if h.Failed != nil {
					h.Failed(err)
				}
				return
			}
			if h.Done != nil {
				h.Done(rep)
			}
		})
	}
	if s.closed.Load() {
		deliver(exporter.Report{}, ErrClosed)
		return
	}

	tables := exporter.Snapshot(s.groups)
	opts := s.exportOpts
	if opts.Logger == nil {
		opts.Logger = s.logger
	}
	newSink := s.newSink

	s.wg.Add(1)
	go func() {
		rep, err := export(newSink, dest, tables, opts)
		s.wg.Done()
		deliver(rep, err)
	}()
}

func export(newSink SinkFactory, dest string, tables []exporter.Table, opts exporter.Options) (exporter.Report, error) {
	sink, err := newSink(dest)
	if err != nil {
		return exporter.Report{}, fmt.Errorf("creating %s: %w", dest, err)
	}
	rep, err := exporter.Write(sink, tables, opts)
	rep.Path = dest
	if err != nil {
		return rep, fmt.Errorf("exporting to %s: %w", dest, err)
	}
	opts.Logger.Info("exported", "path", dest, "sheets", rep.Sheets, "rows", rep.Rows)
	return rep, nil
}
