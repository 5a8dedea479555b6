package performance_test

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/testseries-api/internal/dto"
	"github.com/noah-isme/testseries-api/internal/testutil"
)

func TestConcurrentGradingHasSingleWinner(t *testing.T) {
	h := testutil.NewHarness(t)
	id := h.Submit(t, testutil.StudentS1, testutil.AuditTestID)
	filesBefore := h.CountFiles(t)

	const graders = 8
	statuses := make([]int, graders)
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < graders; i++ {
		grader := testutil.Identity{ID: fmt.Sprintf("T%d", i+1), Name: fmt.Sprintf("Teacher %d", i+1), Role: "teacher"}
		body, contentType := testutil.MultipartBody(t, map[string]string{"marks": fmt.Sprintf("%d/100", 60+i)}, "checked.pdf", testutil.PDF(grader.ID))

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			resp := h.Do(t, grader, http.MethodPost, "/api/v1/teacher/submissions/"+id+"/grade", body, contentType)
			statuses[i] = resp.StatusCode
			resp.Body.Close()
		}(i)
	}
	close(start)
	wg.Wait()

	winners := 0
	winner := -1
	for i, status := range statuses {
		switch status {
		case fiber.StatusOK:
			winners++
			winner = i
		case fiber.StatusConflict:
		default:
			t.Fatalf("grader %d got unexpected status %d", i, status)
		}
	}
	require.Equal(t, 1, winners)

	resp := h.Do(t, testutil.AdminA1, http.MethodGet, "/api/v1/admin/submissions/"+id, nil, "")
	var view dto.SubmissionView
	testutil.DecodeData(t, resp, &view)
	require.Equal(t, "Review", view.Status)
	require.Equal(t, fmt.Sprintf("%d/100", 60+winner), *view.Marks)
	require.Equal(t, fmt.Sprintf("T%d", winner+1), *view.EvaluatorID)

	// Losing uploads are purged so only the winner's sheet remains.
	require.Equal(t, filesBefore+1, h.CountFiles(t))
}

func TestChangeEventFanOutP95Under250ms(t *testing.T) {
	h := testutil.NewHarness(t)
	baseURL := testutil.Listen(t, h.App)
	url := "ws" + strings.TrimPrefix(baseURL, "http") + "/api/v1/events/ws?entity=submission"

	const clients = 50
	dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}
	conns := make([]*websocket.Conn, 0, clients)
	for i := 0; i < clients; i++ {
		header := http.Header{fiber.HeaderAuthorization: {"Bearer " + testutil.Token(t, testutil.TeacherT1)}}
		conn, resp, err := dialer.Dial(url, header)
		if err != nil {
			t.Fatalf("websocket dial failed: %v", err)
		}
		if resp != nil {
			_ = resp.Body.Close()
		}
		defer conn.Close()

		_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		if _, _, err := conn.ReadMessage(); err != nil {
			t.Fatalf("missing greeting for client %d: %v", i, err)
		}
		conns = append(conns, conn)
	}

	start := time.Now()
	id := h.Submit(t, testutil.StudentS1, testutil.AuditTestID)

	durations := make([]time.Duration, clients)
	var wg sync.WaitGroup
	for i, conn := range conns {
		wg.Add(1)
		go func(i int, conn *websocket.Conn) {
			defer wg.Done()
			_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
			var event dto.ChangeEventResponse
			if err := conn.ReadJSON(&event); err != nil || event.RecordID != id {
				durations[i] = time.Hour
				return
			}
			durations[i] = time.Since(start)
		}(i, conn)
	}
	wg.Wait()

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	p95 := percentile(durations, 0.95)

	if p95 > 250*time.Millisecond {
		t.Fatalf("expected fan-out P95 <= 250ms, got %s", p95)
	}
}

func TestQueueReadP95Under100ms(t *testing.T) {
	h := testutil.NewHarness(t)
	for i := 0; i < 40; i++ {
		student := testutil.Identity{ID: fmt.Sprintf("S%d", i+1), Name: "Student", Role: "student"}
		h.Submit(t, student, testutil.AuditTestID)
	}

	iterations := 100
	durations := make([]time.Duration, 0, iterations)
	for i := 0; i < iterations; i++ {
		start := time.Now()
		resp := h.Do(t, testutil.TeacherT1, http.MethodGet, "/api/v1/teacher/queue?status=Pending&limit=50", nil, "")
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		resp.Body.Close()
		durations = append(durations, time.Since(start))
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	p95 := percentile(durations, 0.95)

	if p95 > 100*time.Millisecond {
		t.Fatalf("expected queue P95 <= 100ms, got %s", p95)
	}
}

func percentile(values []time.Duration, pct float64) time.Duration {
	if len(values) == 0 {
		return 0
	}
	index := int(math.Ceil(pct*float64(len(values)))) - 1
	if index < 0 {
		index = 0
	}
	if index >= len(values) {
		index = len(values) - 1
	}
	return values[index]
}
