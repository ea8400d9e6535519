// Package session runs a complete TAP.7 two-wire bring-up: it opens an
// adapter, enumerates the chain in four-wire mode, configures the ADTAPC
// for a two-wire scan format, and enumerates the chain again over two wires.
package session

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/OpenTraceLab/OpenTraceTAP7/pkg/idcode"
	"github.com/OpenTraceLab/OpenTraceTAP7/pkg/jtag"
	"github.com/OpenTraceLab/OpenTraceTAP7/pkg/tap"
	"github.com/OpenTraceLab/OpenTraceTAP7/pkg/tap7"
)

// Stage is the last step a session completed. Stages only move forward.
type Stage int

const (
	StageIdle Stage = iota
	StageOpened
	StagePortQueried
	StageEnabled
	StageReset
	StageFourWireEnumerated
	StageReadyConfigured
	StageDelayConfigured
	StageFormatConfigured
	StageControlLevelExited
	StageTwoWireEnumerated
	StageClosed
)

var stageNames = [...]string{
	StageIdle:               "Idle",
	StageOpened:             "Opened",
	StagePortQueried:        "PortQueried",
	StageEnabled:            "Enabled",
	StageReset:              "Reset",
	StageFourWireEnumerated: "FourWireEnumerated",
	StageReadyConfigured:    "ReadyConfigured",
	StageDelayConfigured:    "DelayConfigured",
	StageFormatConfigured:   "FormatConfigured",
	StageControlLevelExited: "ControlLevelExited",
	StageTwoWireEnumerated:  "TwoWireEnumerated",
	StageClosed:             "Closed",
}

func (s Stage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// controlLevel is the ADTAPC control level that accepts two-part commands.
const controlLevel = 2

// Report summarizes a successful session.
type Report struct {
	Capabilities jtag.Capabilities
	FrequencyHz  uint32
	FourWire     []uint32
	ReadyRetries int
	DelaySet     int
	Format       jtag.ScanFormat
	TwoWire      []uint32
}

// Session owns one transport for the duration of Run.
type Session struct {
	opts   Options
	open   jtag.Opener
	out    io.Writer
	log    *slog.Logger
	stage  Stage
	t      jtag.Transport
	engine *tap7.Engine
	report Report
	// enabled is set once Enable succeeds and selects Disable in teardown.
	enabled bool
}

// New prepares a session. Nothing is opened until Run.
func New(opts Options, opener jtag.Opener, out io.Writer, logger *slog.Logger) *Session {
	if out == nil {
		out = io.Discard
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Session{opts: opts, open: opener, out: out, log: logger}
}

// Stage reports the last stage reached.
func (s *Session) Stage() Stage {
	return s.stage
}

func (s *Session) advance(stage Stage) {
	s.log.Debug("stage reached", "stage", stage.String())
	s.stage = stage
}

// Run executes the whole bring-up. The transport is disabled and closed on
// every path once opened; a teardown failure fails an otherwise successful
// run.
func (s *Session) Run() (rep *Report, err error) {
	if err := s.opts.Validate(); err != nil {
		return nil, err
	}

	t, err := s.open(s.opts.Device)
	if err != nil {
		return nil, jtag.Wrap(jtag.KindDevice, fmt.Sprintf("open device %q", s.opts.Device), err)
	}
	s.t = t
	s.engine = tap7.NewEngine(t, s.log)
	s.advance(StageOpened)

	defer func() {
		terr := s.teardown()
		if terr == nil {
			return
		}
		if err == nil {
			rep, err = nil, terr
			return
		}
		s.log.Warn("teardown failed after error", "error", terr)
	}()

	steps := []struct {
		stage Stage
		run   func() error
	}{
		{StagePortQueried, s.queryPort},
		{StageEnabled, s.enable},
		{StageReset, s.reset},
		{StageFourWireEnumerated, s.enumerateFourWire},
		{StageReadyConfigured, s.configureReady},
		{StageDelayConfigured, s.configureDelay},
		{StageFormatConfigured, s.configureFormat},
		{StageControlLevelExited, s.exitControlLevel},
		{StageTwoWireEnumerated, s.enumerateTwoWire},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			s.log.Debug("step failed", "after", s.stage.String(), "error", err)
			return nil, err
		}
		s.advance(step.stage)
	}

	report := s.report
	return &report, nil
}

func (s *Session) teardown() error {
	var errs []error
	if s.enabled {
		if err := s.t.Disable(); err != nil {
			errs = append(errs, jtag.Wrap(jtag.KindDevice, "disable port", err))
		}
	}
	if err := s.t.Close(); err != nil {
		errs = append(errs, jtag.Wrap(jtag.KindDevice, "close device", err))
	}
	s.advance(StageClosed)
	return errors.Join(errs...)
}

func (s *Session) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

func (s *Session) require(caps jtag.Capabilities, what string) error {
	if !s.report.Capabilities.Has(caps) {
		return jtag.Errorf(jtag.KindCapability, what, "port does not support %s (capabilities: %s)", caps, s.report.Capabilities)
	}
	return nil
}

func (s *Session) queryPort() error {
	caps, err := s.t.Capabilities()
	if err != nil {
		return jtag.Wrap(jtag.KindDevice, "query port capabilities", err)
	}
	s.report.Capabilities = caps
	s.log.Info("port opened", "device", s.opts.Device, "capabilities", caps.String())
	return nil
}

func (s *Session) enable() error {
	if err := s.t.Enable(); err != nil {
		return jtag.Wrap(jtag.KindDevice, "enable port", err)
	}
	s.enabled = true
	if !s.opts.FrequencySet {
		return nil
	}
	hz, err := s.t.SetClockFrequency(s.opts.Frequency)
	if err != nil {
		return jtag.Wrap(jtag.KindDevice, "set TCK frequency", err)
	}
	s.report.FrequencyHz = hz
	s.printf("JTAG TCK Frequency set to: %d Hz\n", hz)
	return nil
}

func (s *Session) reset() error {
	if err := s.require(jtag.CapResetEscape, "reset escape"); err != nil {
		return err
	}
	if err := s.t.ResetEscape(); err != nil {
		return jtag.Wrap(jtag.KindDevice, "reset escape", err)
	}
	return nil
}

func (s *Session) enumerate(mode string, entry tap.Transition) ([]uint32, error) {
	if err := s.engine.Navigate(entry); err != nil {
		return nil, err
	}
	s.printf("Listing device ID codes acquired in %s mode...\n", mode)
	ids, err := Enumerate(s.t, MaxChainLength)
	for _, id := range ids {
		if s.opts.Verbose {
			s.printf("    Found Device ID: %08X (%s)\n", id, s.describe(id))
		} else {
			s.printf("    Found Device ID: %08X\n", id)
		}
	}
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, &jtag.Error{Kind: jtag.KindProtocol, Err: jtag.ErrNoDevices}
	}
	s.log.Info("chain enumerated", "mode", mode, "devices", len(ids))
	return ids, nil
}

// describe names the manufacturer of id and, when a catalog knows it, the
// part.
func (s *Session) describe(id uint32) string {
	label := idcode.Parse(id).Manufacturer.Name
	if s.opts.Parts != nil {
		if part, ok := s.opts.Parts.DeviceName(id); ok {
			label += ", " + part
		}
	}
	return label
}

func (s *Session) enumerateFourWire() error {
	ids, err := s.enumerate("four-wire", tap.TransitionTLRToSDR)
	s.report.FourWire = ids
	return err
}

// configureReady enters control level 2, joins the conditional group, and
// programs the ready bit count when one was requested.
func (s *Session) configureReady() error {
	if err := s.engine.Navigate(tap.TransitionSDRToRTI); err != nil {
		return err
	}
	if err := s.engine.EnterControlLevel(controlLevel); err != nil {
		return err
	}
	if err := s.engine.SetConditionalGroupMember(); err != nil {
		return err
	}
	if s.opts.ReadyCount == 0 {
		return nil
	}
	if err := s.require(jtag.CapReadyCount, "ready count"); err != nil {
		return err
	}
	if err := s.engine.SetReadyControl(s.opts.ReadyCount); err != nil {
		return err
	}
	retries, err := s.t.SetReadyCount(s.opts.ReadyCount)
	if err != nil {
		return jtag.Wrap(jtag.KindDevice, "set ready count", err)
	}
	s.report.ReadyRetries = retries
	s.printf("Expected RDY Bit Count Set to: %d\n", s.opts.ReadyCount)
	s.printf("Output bitframe retry count: %d\n", retries)
	return nil
}

func (s *Session) configureDelay() error {
	if s.opts.DelayCount == 0 {
		return nil
	}
	if err := s.require(jtag.CapDelayCount, "delay count"); err != nil {
		return err
	}
	if err := s.engine.SetDelayControl(s.opts.DelayCount); err != nil {
		return err
	}
	set, err := s.t.SetDelayCount(s.opts.DelayCount)
	if err != nil {
		return jtag.Wrap(jtag.KindDevice, "set delay count", err)
	}
	s.report.DelaySet = set
	s.printf("Delay count requested: %d\n", s.opts.DelayCount)
	s.printf("Delay count set: %d\n", set)
	return nil
}

// configureFormat switches ADTAPC and adapter to the requested format. From
// here on every command uses the advanced-format closing sequence.
func (s *Session) configureFormat() error {
	f := s.opts.ScanFormat
	if err := s.engine.StoreFormat(f); err != nil {
		return err
	}
	if err := s.t.SetScanFormat(f); err != nil {
		return jtag.Wrap(jtag.KindDevice, "set scan format", err)
	}
	s.report.Format = f
	s.printf("Scan Format Set To: %s\n", f)
	s.engine.EnterAdvancedProtocol()
	return nil
}

func (s *Session) exitControlLevel() error {
	return s.engine.ExitControlLevel()
}

func (s *Session) enumerateTwoWire() error {
	ids, err := s.enumerate("two-wire", tap.TransitionRTIToSDR)
	s.report.TwoWire = ids
	return err
}
