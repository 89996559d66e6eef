package gateway

import "testing"

func TestClassifyOK(t *testing.T) {
	if o := Classify(Ok(200)); o != OutcomeOK {
		t.Fatalf("expected OK, got %v", o)
	}
}

func TestClassifyStructuredCodes(t *testing.T) {
	res := Reject(404, `{"code":"not_found","message":"record r000001 does not exist"}`)
	if o := Classify(res); o != OutcomeNotFound {
		t.Fatalf("expected NotFound, got %v", o)
	}
	res = Reject(409, `{"code":"slot_occupied","message":"a record already exists at this position (Toolbar slot 0)"}`)
	if o := Classify(res); o != OutcomeSlotOccupied {
		t.Fatalf("expected SlotOccupied, got %v", o)
	}
}

func TestClassifyProseFallback(t *testing.T) {
	res := Reject(400, `{"message":"The Record Does Not Exist"}`)
	if o := Classify(res); o != OutcomeNotFound {
		t.Fatalf("expected NotFound from prose, got %v", o)
	}
	res = Reject(400, `an item already exists at this position`)
	if o := Classify(res); o != OutcomeSlotOccupied {
		t.Fatalf("expected SlotOccupied from prose, got %v", o)
	}
	res = Reject(400, `el registro no existe`)
	if o := Classify(res); o != OutcomeNotFound {
		t.Fatalf("expected NotFound from Spanish prose, got %v", o)
	}
}

func TestClassifyServerErrorsAreOther(t *testing.T) {
	// Matching prose in a 5xx body must not count as a conflict.
	res := Reject(500, `does not exist`)
	if o := Classify(res); o != OutcomeOther {
		t.Fatalf("expected OtherFailure for 5xx, got %v", o)
	}
}

func TestClassifyTransportAndMalformed(t *testing.T) {
	if o := Classify(TransportFailure(errTest)); o != OutcomeOther {
		t.Fatalf("expected OtherFailure for transport error, got %v", o)
	}
	if o := Classify(Reject(418, "i'm a teapot")); o != OutcomeOther {
		t.Fatalf("expected OtherFailure for unrecognized 4xx, got %v", o)
	}
}

var errTest = errString("connection refused")

type errString string

func (e errString) Error() string { return string(e) }
