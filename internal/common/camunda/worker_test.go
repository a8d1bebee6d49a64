// internal/common/camunda/worker_test.go
package camunda

import (
	"testing"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeVariables(t *testing.T) {
	job := entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 1, Variables: `{"query": "apollo"}`}}

	var in struct {
		Query string `json:"query"`
	}
	require.NoError(t, DecodeVariables(job, &in))
	assert.Equal(t, "apollo", in.Query)

	bad := entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 2, Variables: `{"query":`}}
	assert.Error(t, DecodeVariables(bad, &in))
}
