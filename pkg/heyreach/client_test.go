package heyreach

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeLeads(n int) []Lead {
	leads := make([]Lead, n)
	for i := range leads {
		leads[i] = Lead{
			ProfileURL: "https://www.linkedin.com/in/lead-" + strconv.Itoa(i),
			FirstName:  "Lead",
			LastName:   strconv.Itoa(i),
			CustomFields: []CustomField{
				{Name: "personalized_message", Value: "Hey Lead"},
			},
		}
	}
	return leads
}

func TestAddLeadsToList_SingleChunk(t *testing.T) {
	var gotKey, gotPath string
	var gotReq addLeadsRequest

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-KEY")
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(addLeadsResponse{AddedLeadsCount: len(gotReq.Leads)})
	}))
	defer ts.Close()

	client := NewClient("test-key", WithBaseURL(ts.URL))
	report, err := client.AddLeadsToList(context.Background(), 42, makeLeads(3))
	require.NoError(t, err)

	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "/api/public/list/AddLeadsToListV2", gotPath)
	assert.Equal(t, 42, gotReq.ListID)
	assert.Len(t, report.Accepted, 3)
	assert.Empty(t, report.Rejected)
	assert.Equal(t, "personalized_message", gotReq.Leads[0].CustomFields[0].Name)
}

func TestAddLeadsToList_Chunks(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req addLeadsRequest
		json.NewDecoder(r.Body).Decode(&req)
		assert.LessOrEqual(t, len(req.Leads), 100)
		json.NewEncoder(w).Encode(addLeadsResponse{AddedLeadsCount: len(req.Leads)})
	}))
	defer ts.Close()

	client := NewClient("k", WithBaseURL(ts.URL))
	report, err := client.AddLeadsToList(context.Background(), 1, makeLeads(250))
	require.NoError(t, err)

	assert.Equal(t, int32(3), calls.Load())
	assert.Len(t, report.Accepted, 250)
}

func TestAddLeadsToList_PerLeadRejections(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req addLeadsRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(addLeadsResponse{
			AddedLeadsCount: len(req.Leads) - 2,
			FailedLeads: []failedLead{
				{ProfileURL: req.Leads[0].ProfileURL, Reason: "already in list"},
				{ProfileURL: req.Leads[1].ProfileURL, Reason: "invalid profile url"},
			},
		})
	}))
	defer ts.Close()

	client := NewClient("k", WithBaseURL(ts.URL))
	leads := makeLeads(75)
	report, err := client.AddLeadsToList(context.Background(), 1, leads)
	require.NoError(t, err)

	assert.Len(t, report.Accepted, 73)
	assert.Len(t, report.Rejected, 2)
	assert.Equal(t, "already in list", report.Rejected[leads[0].ProfileURL])
	assert.False(t, report.Confirmed(leads[0].ProfileURL))
	assert.True(t, report.Confirmed(leads[2].ProfileURL))
}

func TestAddLeadsToList_ChunkFailureIsolated(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		var req addLeadsRequest
		json.NewDecoder(r.Body).Decode(&req)
		if n == 1 {
			// Permanent failure for the first chunk; must not abort the rest.
			http.Error(w, `{"error":"bad chunk"}`, http.StatusUnprocessableEntity)
			return
		}
		json.NewEncoder(w).Encode(addLeadsResponse{AddedLeadsCount: len(req.Leads)})
	}))
	defer ts.Close()

	client := NewClient("k", WithBaseURL(ts.URL))
	report, err := client.AddLeadsToList(context.Background(), 1, makeLeads(150))
	require.NoError(t, err)

	assert.Len(t, report.Accepted, 50)
	assert.Len(t, report.Rejected, 100)
}

func TestAddLeadsToList_RetriesTransient(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		var req addLeadsRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(addLeadsResponse{AddedLeadsCount: len(req.Leads)})
	}))
	defer ts.Close()

	client := NewClient("k", WithBaseURL(ts.URL))
	report, err := client.AddLeadsToList(context.Background(), 1, makeLeads(5))
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
	assert.Len(t, report.Accepted, 5)
	assert.Empty(t, report.Rejected)
}

func TestAddLeadsToList_ConcurrentUploads(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req addLeadsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		json.NewEncoder(w).Encode(addLeadsResponse{AddedLeadsCount: len(req.Leads)})
	}))
	defer ts.Close()

	// One client shared by several goroutines: retry state must not be
	// mutated per call.
	client := NewClient("test-key", WithBaseURL(ts.URL))

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			report, err := client.AddLeadsToList(context.Background(), 42, makeLeads(5))
			assert.NoError(t, err)
			assert.Len(t, report.Accepted, 5)
		}()
	}
	wg.Wait()
}

func TestCustomFieldValue(t *testing.T) {
	lead := Lead{CustomFields: []CustomField{
		{Name: "personalized_message", Value: "Hey there"},
	}}
	assert.Equal(t, "Hey there", lead.CustomFieldValue("personalized_message"))
	assert.Empty(t, lead.CustomFieldValue("missing"))
}

func TestUploadReportConfirmed(t *testing.T) {
	r := &UploadReport{Accepted: []string{"a", "b"}}
	assert.True(t, r.Confirmed("a"))
	assert.False(t, r.Confirmed("c"))
}
