package sensor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/eclipse/paho.mqtt.golang/packets"
	"go.uber.org/zap"
	"go.viam.com/test"

	"compass-tape.klederson.com/internal/config"
	"compass-tape.klederson.com/internal/heading"
)

// sentence wraps body in $...*CS with a valid checksum.
func sentence(body string) string {
	var cs byte
	for i := 0; i < len(body); i++ {
		cs ^= body[i]
	}
	return fmt.Sprintf("$%s*%02X", body, cs)
}

func le16(v int16) uint16 {
	return uint16(v)
}

func TestDecodeBLEInt16(t *testing.T) {
	buf := make([]byte, 6)
	binary.LittleEndian.PutUint16(buf[0:], le16(120))
	binary.LittleEndian.PutUint16(buf[2:], le16(-340))
	binary.LittleEndian.PutUint16(buf[4:], le16(-5))

	v, err := decodeBLEPayload(buf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldResemble, heading.MagneticVector{X: 120, Y: -340, Z: -5})
}

func TestDecodeBLEFloat32(t *testing.T) {
	buf := make([]byte, 12)
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(21.5))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(-3.25))
	binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(40))

	v, err := decodeBLEPayload(buf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldResemble, heading.MagneticVector{X: 21.5, Y: -3.25, Z: 40})
}

func TestDecodeBLERejectsOddLengths(t *testing.T) {
	_, err := decodeBLEPayload([]byte{1, 2, 3})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDecodeMQTTPayload(t *testing.T) {
	v, err := decodeMQTTPayload([]byte(`{"mx":120,"my":-45,"mz":300,"norm":33.1,"time":"2026-01-01T00:00:00Z"}`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldResemble, heading.MagneticVector{X: 120, Y: -45, Z: 300})

	v, err = decodeMQTTPayload([]byte(`{"x":0.5,"y":-0.5}`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldResemble, heading.MagneticVector{X: 0.5, Y: -0.5})

	_, err = decodeMQTTPayload([]byte(`{"heading":90}`))
	test.That(t, err, test.ShouldNotBeNil)
	_, err = decodeMQTTPayload([]byte(`not json`))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestHeadingFromSentence(t *testing.T) {
	h, err := headingFromSentence(sentence("HCHDG,98.3,0.0,E,12.6,W"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, h, test.ShouldAlmostEqual, 98.3)

	h, err = headingFromSentence(sentence("HCHDM,238.5,M") + "\r\n")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, h, test.ShouldAlmostEqual, 238.5)

	h, err = headingFromSentence(sentence("GPHDT,274.07,T"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, h, test.ShouldAlmostEqual, 274.07)

	_, err = headingFromSentence(sentence("GPGLL,3723.2475,N,12158.3416,W,161229.487,A,A"))
	test.That(t, errors.Is(err, ErrUnsupportedSentence), test.ShouldBeTrue)

	_, err = headingFromSentence("$HCHDM,238.5,M*00")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, ErrUnsupportedSentence), test.ShouldBeFalse)

	_, err = headingFromSentence("garbage")
	test.That(t, errors.Is(err, ErrUnsupportedSentence), test.ShouldBeTrue)
}

func TestNMEAReplayFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heading.nmea")
	lines := []string{
		sentence("HCHDM,10.0,M"),
		sentence("GPGLL,3723.2475,N,12158.3416,W,161229.487,A,A"),
		sentence("HCHDG,20.0,0.0,E,0.0,W"),
		"",
		sentence("HCHDM,30.0,M"),
	}
	test.That(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o600), test.ShouldBeNil)

	rec := newRecorder()
	src := NewNMEASource(config.NMEAConfig{Port: path, BaudRate: 4800}, zap.NewNop().Sugar())
	sub := Subscribe(src, rec, time.Millisecond, zap.NewNop().Sugar())
	defer sub.Cancel()

	test.That(t, rec.next(t).(StatusMsg).Ready(), test.ShouldBeTrue)

	// three usable sentences, replayed in a loop
	for _, want := range []float64{10, 20, 30, 10} {
		sample := rec.next(t).(SampleMsg)
		got, err := heading.ComputeHeading(sample.Vector)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got, test.ShouldAlmostEqual, want, 1e-9)
	}
}

func TestNMEAMissingPortIsUnavailable(t *testing.T) {
	src := NewNMEASource(config.NMEAConfig{Port: filepath.Join(t.TempDir(), "ttyNOPE")}, zap.NewNop().Sugar())
	err := src.Available()
	test.That(t, errors.Is(err, ErrSensorUnavailable), test.ShouldBeTrue)
}

func TestClassifyConnectError(t *testing.T) {
	err := classifyConnectError("tcp://x:1883", packets.ErrorRefusedBadUsernameOrPassword)
	test.That(t, errors.Is(err, ErrPermissionDenied), test.ShouldBeTrue)

	err = classifyConnectError("tcp://x:1883", packets.ErrorRefusedNotAuthorised)
	test.That(t, errors.Is(err, ErrPermissionDenied), test.ShouldBeTrue)

	err = classifyConnectError("tcp://x:1883", errors.New("connection refused"))
	test.That(t, errors.Is(err, ErrSensorUnavailable), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "connection refused")
}

type fakeRegister struct {
	regs   [16]byte
	writes [][]byte
	err    error
}

func (f *fakeRegister) Tx(w, r []byte) error {
	if f.err != nil {
		return f.err
	}
	if len(r) == 0 {
		f.writes = append(f.writes, append([]byte(nil), w...))
		if len(w) == 2 {
			f.regs[w[0]] = w[1]
		}
		return nil
	}
	copy(r, f.regs[w[0]:])
	return nil
}

func TestQMCDriver(t *testing.T) {
	dev := &fakeRegister{}
	dev.regs[qmcRegChipID] = qmcChipID
	binary.LittleEndian.PutUint16(dev.regs[0:], le16(-1200))
	binary.LittleEndian.PutUint16(dev.regs[2:], le16(850))
	binary.LittleEndian.PutUint16(dev.regs[4:], le16(-300))

	id, err := readChipID(dev)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, id, test.ShouldEqual, byte(qmcChipID))

	test.That(t, configureQMC(dev), test.ShouldBeNil)
	test.That(t, dev.writes, test.ShouldResemble, [][]byte{
		{qmcRegReset, qmcResetPeriod},
		{qmcRegControl, qmcControl},
	})

	_, _, _, ready, err := readQMC(dev)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ready, test.ShouldBeFalse)

	dev.regs[qmcRegStatus] = qmcStatusReady
	x, y, z, ready, err := readQMC(dev)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ready, test.ShouldBeTrue)
	test.That(t, []int16{x, y, z}, test.ShouldResemble, []int16{-1200, 850, -300})

	dev.err = errors.New("nack")
	_, err = readChipID(dev)
	test.That(t, err, test.ShouldNotBeNil)
}
