package query

import "github.com/mohans/arqmon/arqmon"

// SortField names a sortable record field.
type SortField string

const (
	SortID                SortField = "id"
	SortEnqueueTime       SortField = "enqueue_time"
	SortStartTime         SortField = "start_time"
	SortFinishTime        SortField = "finish_time"
	SortExecutionDuration SortField = "execution_duration"
	SortFunction          SortField = "function"
	SortStatus            SortField = "status"
	SortSuccess           SortField = "success"
	SortQueueName         SortField = "queue_name"
	SortArgs              SortField = "args"
	SortKwargs            SortField = "kwargs"
	SortJobTry            SortField = "job_try"
)

var sortKeys = map[SortField]func(*arqmon.JobRecord) sortValue{
	SortID:          func(j *arqmon.JobRecord) sortValue { return str(j.ID) },
	SortEnqueueTime: func(j *arqmon.JobRecord) sortValue { return timeVal(&j.EnqueueTime) },
	SortStartTime:   func(j *arqmon.JobRecord) sortValue { return timeVal(j.StartTime) },
	SortFinishTime:  func(j *arqmon.JobRecord) sortValue { return timeVal(j.FinishTime) },
	SortExecutionDuration: func(j *arqmon.JobRecord) sortValue {
		if j.ExecutionDuration == nil {
			return missing
		}
		return num(*j.ExecutionDuration)
	},
	SortFunction: func(j *arqmon.JobRecord) sortValue { return str(j.Function) },
	SortStatus:   func(j *arqmon.JobRecord) sortValue { return str(string(j.Status)) },
	SortSuccess:  func(j *arqmon.JobRecord) sortValue { return boolVal(j.Success) },
	SortQueueName: func(j *arqmon.JobRecord) sortValue {
		if j.QueueName == nil {
			return missing
		}
		return str(*j.QueueName)
	},
	SortArgs: func(j *arqmon.JobRecord) sortValue {
		if j.Args == nil {
			return missing
		}
		return str(render(j.Args))
	},
	SortKwargs: func(j *arqmon.JobRecord) sortValue {
		if j.Kwargs == nil {
			return missing
		}
		return str(render(j.Kwargs))
	},
	SortJobTry: func(j *arqmon.JobRecord) sortValue {
		if j.JobTry == nil {
			return missing
		}
		return num(int64(*j.JobTry))
	},
}

// ParseSortField validates a sort field name.
func ParseSortField(s string) (SortField, bool) {
	f := SortField(s)
	_, ok := sortKeys[f]
	return f, ok
}

// SortFields lists every sortable field.
func SortFields() []SortField {
	return []SortField{
		SortID, SortEnqueueTime, SortStartTime, SortFinishTime, SortExecutionDuration,
		SortFunction, SortStatus, SortSuccess, SortQueueName, SortArgs, SortKwargs, SortJobTry,
	}
}
