// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

package validation

import (
	"strings"
	"testing"
)

type statusRequest struct {
	Status string  `validate:"required,oneof=new open ack closed"`
	Weight float64 `validate:"gte=0,lte=1"`
}

func TestValidateStruct(t *testing.T) {
	t.Parallel()

	if err := ValidateStruct(&statusRequest{Status: "ack", Weight: 0.5}); err != nil {
		t.Fatalf("valid struct rejected: %v", err)
	}

	err := ValidateStruct(&statusRequest{Status: "bogus", Weight: 2})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if len(err.Fields) != 2 {
		t.Fatalf("expected 2 field errors, got %d: %v", len(err.Fields), err)
	}
	if !strings.Contains(err.Error(), "must be one of: new open ack closed") {
		t.Errorf("unexpected message: %s", err.Error())
	}
	if !strings.Contains(err.Error(), "must be at most 1") {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestValidateStruct_Required(t *testing.T) {
	t.Parallel()

	err := ValidateStruct(&statusRequest{})
	if err == nil || err.Fields[0].Tag != "required" {
		t.Fatalf("expected required error, got %v", err)
	}
}
