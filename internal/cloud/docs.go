package cloud

import (
	"errors"
	"time"

	"example.com/wearsync/internal/domain"
)

// CloudSession is the decoded form of a session document.
type CloudSession struct {
	CloudID         string
	UserID          string
	SourceSessionID int64
	StartTime       time.Time
	EndTime         time.Time
	DataPointCount  int
	UploadedAt      time.Time
}

// CloudSample is the decoded form of a sample document.
type CloudSample struct {
	Timestamp time.Time
	HeartRate *float64
	GyroX     *float64
	GyroY     *float64
	GyroZ     *float64
}

func sessionDoc(userID string, session domain.CompanionSession, uploadedAt time.Time) Document {
	return Document{
		"sessionId":       session.CloudID,
		"userId":          userID,
		"sourceSessionId": session.SourceSessionID,
		"startTime":       session.StartTime.UnixMilli(),
		"endTime":         session.EndTime.UnixMilli(),
		"dataPointCount":  session.DataPointCount,
		"uploadedAt":      uploadedAt.UnixMilli(),
	}
}

func sampleDoc(userID, cloudID string, rec domain.SampleRecord) Document {
	doc := Document{
		"sessionId": cloudID,
		"userId":    userID,
		"timestamp": rec.Timestamp.UnixMilli(),
	}
	if rec.HeartRate != nil {
		doc["heartRate"] = *rec.HeartRate
	}
	if rec.GyroX != nil {
		doc["gyroX"] = *rec.GyroX
	}
	if rec.GyroY != nil {
		doc["gyroY"] = *rec.GyroY
	}
	if rec.GyroZ != nil {
		doc["gyroZ"] = *rec.GyroZ
	}
	return doc
}

var errMalformedDoc = errors.New("malformed cloud document")

func decodeSessionDoc(doc Document) (*CloudSession, error) {
	cloudID, ok := doc["sessionId"].(string)
	if !ok || cloudID == "" {
		return nil, errMalformedDoc
	}
	userID, ok := doc["userId"].(string)
	if !ok {
		return nil, errMalformedDoc
	}
	start, ok := asInt64(doc["startTime"])
	if !ok {
		return nil, errMalformedDoc
	}
	end, ok := asInt64(doc["endTime"])
	if !ok {
		return nil, errMalformedDoc
	}

	session := &CloudSession{
		CloudID:   cloudID,
		UserID:    userID,
		StartTime: time.UnixMilli(start).UTC(),
		EndTime:   time.UnixMilli(end).UTC(),
	}
	if v, ok := asInt64(doc["sourceSessionId"]); ok {
		session.SourceSessionID = v
	}
	if v, ok := asInt64(doc["dataPointCount"]); ok {
		session.DataPointCount = int(v)
	}
	if v, ok := asInt64(doc["uploadedAt"]); ok {
		session.UploadedAt = time.UnixMilli(v).UTC()
	}
	return session, nil
}

func decodeSampleDoc(doc Document) (*CloudSample, error) {
	ts, ok := asInt64(doc["timestamp"])
	if !ok {
		return nil, errMalformedDoc
	}
	return &CloudSample{
		Timestamp: time.UnixMilli(ts).UTC(),
		HeartRate: asFloatPtr(doc["heartRate"]),
		GyroX:     asFloatPtr(doc["gyroX"]),
		GyroY:     asFloatPtr(doc["gyroY"]),
		GyroZ:     asFloatPtr(doc["gyroZ"]),
	}, nil
}

// asInt64 tolerates the numeric widening JSON transports apply.
func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

func asFloatPtr(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case int64:
		f := float64(n)
		return &f
	case int:
		f := float64(n)
		return &f
	default:
		return nil
	}
}
