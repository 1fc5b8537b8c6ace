package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// walkthrough drives the full booking lifecycle against a running api-server:
// one booking is accepted, rescheduled and declined; a second, placed on an
// already elapsed date, is accepted and closed with an outcome. Useful as a
// smoke check over any store backend.

type appointment struct {
	ID     string `json:"id"`
	Date   string `json:"date"`
	Slot   int    `json:"slot"`
	Status string `json:"status"`
}

type client struct {
	base string
	http *http.Client
}

func (c *client) do(method, path string, body any, out any) error {
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.base+path, buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, data)
	}
	if out != nil {
		return json.Unmarshal(data, out)
	}
	return nil
}

func main() {
	log.SetFlags(log.LstdFlags)

	var (
		baseURL      = flag.String("base-url", "http://127.0.0.1:8080", "api-server base URL")
		patient      = flag.String("patient", "P1", "patient ID")
		practitioner = flag.String("practitioner", "D1", "practitioner ID")
	)
	flag.Parse()

	c := &client{base: *baseURL, http: &http.Client{Timeout: 10 * time.Second}}

	futureDate := time.Now().AddDate(0, 0, 7).Format("02/01/2006")
	pastDate := time.Now().AddDate(0, 0, -1).Format("02/01/2006")

	step := func(name string, fn func() error) {
		if err := fn(); err != nil {
			log.Fatalf("%s: %v", name, err)
		}
		log.Printf("ok: %s", name)
	}

	var first appointment
	step("book slot 3 on "+futureDate, func() error {
		return c.do("POST", "/appointments", map[string]any{
			"patient_id": *patient, "practitioner_id": *practitioner,
			"date": futureDate, "slot": 3,
		}, &first)
	})

	step("practitioner accepts", func() error {
		return c.do("POST", "/practitioners/"+*practitioner+"/slots/accept",
			map[string]any{"date": futureDate, "slot": 3}, nil)
	})

	step("double booking is rejected", func() error {
		err := c.do("POST", "/appointments", map[string]any{
			"patient_id": *patient, "practitioner_id": *practitioner,
			"date": futureDate, "slot": 3,
		}, nil)
		if err == nil {
			return fmt.Errorf("second booking of the same slot succeeded")
		}
		return nil
	})

	step("patient reschedules to slot 5", func() error {
		var moved appointment
		if err := c.do("POST", "/appointments/"+first.ID+"/reschedule",
			map[string]any{"date": futureDate, "slot": 5}, &moved); err != nil {
			return err
		}
		if moved.Status != "PENDING" || moved.Slot != 5 {
			return fmt.Errorf("unexpected state after reschedule: %+v", moved)
		}
		return nil
	})

	step("practitioner declines", func() error {
		return c.do("POST", "/practitioners/"+*practitioner+"/slots/decline",
			map[string]any{"date": futureDate, "slot": 5}, nil)
	})

	var second appointment
	step("book an elapsed date for outcome recording", func() error {
		return c.do("POST", "/appointments", map[string]any{
			"patient_id": *patient, "practitioner_id": *practitioner,
			"date": pastDate, "slot": 1,
		}, &second)
	})

	step("practitioner accepts the elapsed booking", func() error {
		return c.do("POST", "/practitioners/"+*practitioner+"/slots/accept",
			map[string]any{"date": pastDate, "slot": 1}, nil)
	})

	step("record completed outcome", func() error {
		return c.do("POST", "/appointments/"+second.ID+"/outcome", map[string]any{
			"outcome":      "completed",
			"service_type": "Consultation",
			"notes":        "walkthrough visit",
			"diagnosis":    "none",
			"treatment":    "none",
			"prescriptions": []map[string]any{
				{"medication_id": "M1", "name": "Paracetamol", "quantity": 2},
			},
		}, nil)
	})

	step("second outcome attempt is rejected", func() error {
		err := c.do("POST", "/appointments/"+second.ID+"/outcome",
			map[string]any{"outcome": "no_show"}, nil)
		if err == nil {
			return fmt.Errorf("outcome recorded twice for %s", second.ID)
		}
		return nil
	})

	log.Println("walkthrough complete")
}
