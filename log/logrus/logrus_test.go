package logrus

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/unkn0wn-root/batchload"
)

func TestLoggerWritesFields(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	l := New(base)

	boom := errors.New("db down")
	l.Warn("batch fetch failed", batchload.Fields{"loader": "order.byCustomerID", "err": boom})

	e := hook.LastEntry()
	if e == nil || e.Level != logrus.WarnLevel || e.Message != "batch fetch failed" {
		t.Fatalf("entry=%+v", e)
	}
	if e.Data["loader"] != "order.byCustomerID" || e.Data["component"] != "batchload" {
		t.Fatalf("data=%v", e.Data)
	}
	if e.Data[logrus.ErrorKey] != boom {
		t.Fatalf("error field=%v", e.Data[logrus.ErrorKey])
	}
}
