package notify

import (
	"testing"

	"github.com/platinasystems/bcmchassis/chassis"
)

func TestNullWriterDiscardsSilently(t *testing.T) {
	var w Writer = NullWriter{}
	w.PortOperStateChanged(1, 2, 0, chassis.LinkUp)
	if err := w.Close(); err != nil {
		t.Errorf("Close() = %v, want nil", err)
	}
}
