package blackbox

const (
	initSchemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    start_time TIMESTAMP NOT NULL,
    vehicle    TEXT      NOT NULL,
    config     TEXT
);

CREATE TABLE IF NOT EXISTS frames (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id   INTEGER   NOT NULL REFERENCES sessions (id),
    cycle        INTEGER   NOT NULL,
    timestamp    TIMESTAMP NOT NULL,
    mode         TEXT      NOT NULL,
    dt           REAL      NOT NULL,
    roll         REAL      NOT NULL,
    pitch        REAL      NOT NULL,
    cmd_x        REAL      NOT NULL,
    cmd_y        REAL      NOT NULL,
    cmd_z        REAL      NOT NULL,
    cmd_twist    REAL      NOT NULL,
    cmd_aux      REAL      NOT NULL,
    failed_imu   INTEGER   NOT NULL,
    failed_radio INTEGER   NOT NULL,
    duty_fl      INTEGER   NOT NULL,
    duty_fr      INTEGER   NOT NULL,
    duty_br      INTEGER   NOT NULL,
    duty_bl      INTEGER   NOT NULL
);`

	initIndexesSQL = `
CREATE INDEX IF NOT EXISTS idx_frames_session_cycle ON frames (session_id, cycle);`

	insertSessionSQL = `
INSERT INTO sessions (start_time,
                      vehicle,
                      config)
VALUES (CURRENT_TIMESTAMP, ?, ?)`

	selectSessionSQL = `
SELECT id,
       start_time,
       vehicle,
       config
FROM sessions
WHERE id = ?`

	insertFrameSQL = `
INSERT INTO frames (session_id,
                    cycle,
                    timestamp,
                    mode,
                    dt,
                    roll,
                    pitch,
                    cmd_x,
                    cmd_y,
                    cmd_z,
                    cmd_twist,
                    cmd_aux,
                    failed_imu,
                    failed_radio,
                    duty_fl,
                    duty_fr,
                    duty_br,
                    duty_bl)
VALUES `

	frameValuesPlaceholder = "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	frameColumns           = 18

	selectFramesSQL = `
SELECT cycle,
       timestamp,
       mode,
       dt,
       roll,
       pitch,
       cmd_x,
       cmd_y,
       cmd_z,
       cmd_twist,
       cmd_aux,
       failed_imu,
       failed_radio,
       duty_fl,
       duty_fr,
       duty_br,
       duty_bl
FROM frames
WHERE session_id = ?
ORDER BY id`
)
