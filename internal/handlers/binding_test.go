package handlers

import (
	"bytes"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindNestedOrFlat(t *testing.T) {
	gin.SetMode(gin.TestMode)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		key         string
		body        string
		expected    WorkLogRequest
		expectError bool
	}{
		{
			name:     "Nested Structure",
			key:      "work_log",
			body:     `{"work_log": {"project_id": 3, "date": "2026-03-10", "hours": 2.5}}`,
			expected: WorkLogRequest{ProjectID: 3, Date: Date{day}, Hours: 2.5},
		},
		{
			name:     "Flat Structure",
			key:      "work_log",
			body:     `{"project_id": 4, "date": "2026-03-10T00:00:00Z", "hours": 1}`,
			expected: WorkLogRequest{ProjectID: 4, Date: Date{day}, Hours: 1},
		},
		{
			name:     "Missing Key Falls Back To Flat",
			key:      "work_log",
			body:     `{"other": "value", "project_id": 5, "hours": 8}`,
			expected: WorkLogRequest{ProjectID: 5, Hours: 8},
		},
		{
			name:        "Invalid Type",
			key:         "work_log",
			body:        `{"project_id": 1, "hours": "two"}`,
			expectError: true,
		},
		{
			name:        "Nested but Invalid Content",
			key:         "work_log",
			body:        `{"work_log": {"hours": "two"}}`,
			expectError: true,
		},
		{
			name:        "Nested Key Present but Invalid Type",
			key:         "work_log",
			body:        `{"work_log": "some string"}`,
			expectError: true,
		},
		{
			name:        "Unparseable Date",
			key:         "work_log",
			body:        `{"project_id": 1, "date": "10/03/2026", "hours": 1}`,
			expectError: true,
		},
		{
			name:        "Empty Body",
			key:         "work_log",
			body:        ``,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("POST", "/", bytes.NewBufferString(tt.body))
			c.Request.Header.Set("Content-Type", "application/json")

			var result WorkLogRequest
			err := BindNestedOrFlat(c, tt.key, &result)

			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected.ProjectID, result.ProjectID)
			assert.Equal(t, tt.expected.Hours, result.Hours)
			assert.True(t, tt.expected.Date.Equal(result.Date.Time), "got %s", result.Date)
		})
	}
}

func TestDate_Ptr(t *testing.T) {
	var unset *Date
	assert.Nil(t, unset.Ptr())
	assert.Nil(t, (&Date{}).Ptr())

	d := &Date{time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)}
	require.NotNil(t, d.Ptr())
	assert.Equal(t, "2026-04-01", d.Ptr().Format(dateLayout))
}
