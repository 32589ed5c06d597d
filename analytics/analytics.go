package analytics

type DataCollectorConfig struct {
	FileName      string
	CollectorType DataCollectorType
}

type DataCollectorType string

const LOG_FILE_DATA_COLLECTOR DataCollectorType = "LOG_FILE_DATA_COLLECTOR"
const NOOP_DATA_COLLECTOR DataCollectorType = "NOOP_DATA_COLLECTOR"

// NodeDataCollector records per-node execution outcomes for offline analysis
// of published flows.
type NodeDataCollector interface {
	RecordNodeSuccess(botId string, flowId string, nodeType string, nodeId string, userId int64)
	RecordNodeFailure(botId string, flowId string, nodeType string, nodeId string, userId int64, reason string)
}

var nodeCollector NodeDataCollector = noopCollector{}

func InitDataCollector(config DataCollectorConfig) error {
	switch config.CollectorType {
	case LOG_FILE_DATA_COLLECTOR:
		c, err := NewLogFileDataCollector(config.FileName)
		if err != nil {
			return err
		}
		nodeCollector = c
	}
	return nil
}

func RecordNodeSuccess(botId string, flowId string, nodeType string, nodeId string, userId int64) {
	nodeCollector.RecordNodeSuccess(botId, flowId, nodeType, nodeId, userId)
}

func RecordNodeFailure(botId string, flowId string, nodeType string, nodeId string, userId int64, reason string) {
	nodeCollector.RecordNodeFailure(botId, flowId, nodeType, nodeId, userId, reason)
}

type noopCollector struct{}

func (noopCollector) RecordNodeSuccess(string, string, string, string, int64) {}

func (noopCollector) RecordNodeFailure(string, string, string, string, int64, string) {}
