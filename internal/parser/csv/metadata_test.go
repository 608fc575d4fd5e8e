package csv

import (
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"
)

const metadataHeader = "ID,DAM,LAKE,STREAM,CAPACITY (AF),YEAR FILL\n"

func TestParseReservoirMetadata(t *testing.T) {
	t.Parallel()

	input := metadataHeader +
		"SHA,Shasta,Lake Shasta,Sacramento River,4552000,1954\n" +
		"ORO,Oroville,Lake Oroville,Feather River,3537577,1969\n"

	rows, skipped, err := ParseReservoirMetadata(strings.NewReader(input), MetadataOptions{})
	if err != nil {
		t.Fatalf("ParseReservoirMetadata: %v", err)
	}
	if skipped != 0 {
		t.Fatalf("skipped=%d, want 0", skipped)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	sha := rows[0]
	if sha.StationID != "SHA" || sha.Dam != "Shasta" || sha.Lake != "Lake Shasta" || sha.Stream != "Sacramento River" {
		t.Errorf("SHA row = %+v", sha)
	}
	if sha.Capacity == nil || *sha.Capacity != 4552000 {
		t.Errorf("SHA capacity = %v, want 4552000", sha.Capacity)
	}
	if sha.FillYear == nil || *sha.FillYear != 1954 {
		t.Errorf("SHA fill year = %v, want 1954", sha.FillYear)
	}
}

func TestParseReservoirMetadataEmptyOptionalFields(t *testing.T) {
	t.Parallel()

	input := metadataHeader + "XYZ,Some Dam,Some Lake,Some Stream,,\n"

	rows, _, err := ParseReservoirMetadata(strings.NewReader(input), MetadataOptions{})
	if err != nil {
		t.Fatalf("ParseReservoirMetadata: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	// Empty capacity and year-fill mean unknown, never zero.
	if rows[0].Capacity != nil {
		t.Errorf("capacity = %v, want nil", *rows[0].Capacity)
	}
	if rows[0].FillYear != nil {
		t.Errorf("fill year = %v, want nil", *rows[0].FillYear)
	}
}

func TestParseReservoirMetadataColumnOrderIndependent(t *testing.T) {
	t.Parallel()

	input := "DAM,ID,YEAR FILL,LAKE,STREAM,CAPACITY (AF)\n" +
		"Shasta,SHA,1954,Lake Shasta,Sacramento River,4552000\n"

	rows, _, err := ParseReservoirMetadata(strings.NewReader(input), MetadataOptions{})
	if err != nil {
		t.Fatalf("ParseReservoirMetadata: %v", err)
	}
	if len(rows) != 1 || rows[0].StationID != "SHA" || rows[0].Dam != "Shasta" {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestParseReservoirMetadataSkipsBadRows(t *testing.T) {
	t.Parallel()

	input := metadataHeader +
		",No Station,Lake,Stream,100,1950\n" + // empty id
		"AAA,Dam,Lake,Stream,not-a-number,1950\n" + // bad capacity
		"BBB,Dam,Lake,Stream,100,19xx\n" + // bad year
		"CCC,Dam,Lake,Stream,100,1950\n"

	rows, skipped, err := ParseReservoirMetadata(strings.NewReader(input), MetadataOptions{})
	if err != nil {
		t.Fatalf("ParseReservoirMetadata: %v", err)
	}
	if skipped != 3 {
		t.Errorf("skipped=%d, want 3", skipped)
	}
	if len(rows) != 1 || rows[0].StationID != "CCC" {
		t.Fatalf("rows = %+v, want only CCC", rows)
	}
}

func TestParseReservoirMetadataBOMHeader(t *testing.T) {
	t.Parallel()

	input := "﻿" + metadataHeader + "SHA,Shasta,Lake Shasta,Sacramento River,4552000,1954\n"

	rows, _, err := ParseReservoirMetadata(strings.NewReader(input), MetadataOptions{})
	if err != nil {
		t.Fatalf("ParseReservoirMetadata: %v", err)
	}
	if len(rows) != 1 || rows[0].StationID != "SHA" {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestParseReservoirMetadataMissingIDColumn(t *testing.T) {
	t.Parallel()

	input := "DAM,LAKE\nShasta,Lake Shasta\n"
	_, _, err := ParseReservoirMetadata(strings.NewReader(input), MetadataOptions{})
	if err == nil {
		t.Fatal("want error for missing ID column")
	}
}

func TestParseReservoirMetadataLatin1(t *testing.T) {
	t.Parallel()

	// "Cañada Dam" encoded as Windows-1252.
	utf8Input := metadataHeader + "CAN,Cañada Dam,Lake,Stream,1000,1960\n"
	enc, err := charmap.Windows1252.NewEncoder().String(utf8Input)
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}

	rows, _, err := ParseReservoirMetadata(strings.NewReader(enc), MetadataOptions{Latin1: true})
	if err != nil {
		t.Fatalf("ParseReservoirMetadata: %v", err)
	}
	if len(rows) != 1 || rows[0].Dam != "Cañada Dam" {
		t.Fatalf("rows = %+v, want dam %q", rows, "Cañada Dam")
	}
}
