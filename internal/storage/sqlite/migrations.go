package sqlite

// schema contains the per-device database DDL. The column names match the
// files written by earlier versions of the recorder.
const schema = `
CREATE TABLE IF NOT EXISTS sensor_data (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    temp INTEGER NOT NULL,
    humidity INTEGER NOT NULL,
    battery_mv INTEGER NOT NULL,
    battery_level INTEGER NOT NULL,
    timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_sensor_data_timestamp ON sensor_data(timestamp);
`
