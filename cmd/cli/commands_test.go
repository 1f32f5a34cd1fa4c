package main

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"

	"github.com/aryan0dhankhar/aptlease/internal/domain"
	"github.com/aryan0dhankhar/aptlease/internal/worker"
)

func TestPrintDrift(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	printDrift(cmd, nil)
	assert.Equal(t, "no drift\n", buf.String())

	buf.Reset()
	printDrift(cmd, []worker.Drift{
		{Kind: worker.DriftOccupiedWithoutContract, ApartmentID: "A101", Number: "101", Status: domain.StatusOccupied},
		{Kind: worker.DriftMultipleActive, ApartmentID: "A102", Number: "102", Status: domain.StatusOccupied, ContractIDs: []string{"C1", "C2"}},
	})
	out := buf.String()
	assert.Contains(t, out, "APARTMENT")
	assert.Contains(t, out, "occupied_without_contract")
	assert.Contains(t, out, "C1,C2")
}

func TestCreateAdminRequiresFlags(t *testing.T) {
	cmd := createAdminCmd()
	cmd.SetArgs([]string{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.Error(t, cmd.Execute())
}
