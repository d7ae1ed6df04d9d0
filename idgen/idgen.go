package idgen

import (
	"os"
	"strconv"
	"time"

	"github.com/fundwit/go-commons/types"
	"github.com/sirupsen/logrus"
	"github.com/sony/sonyflake"
)

const MachineIDEnv = "SONYFLAKE_MACHINE_ID"

// NewSonyflake builds a worker which does not depend on a private network address:
// the machine id comes from SONYFLAKE_MACHINE_ID, or the process id when unset.
func NewSonyflake() *sonyflake.Sonyflake {
	machineID := machineID()
	worker := sonyflake.NewSonyflake(sonyflake.Settings{
		StartTime: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		MachineID: func() (uint16, error) { return machineID, nil },
	})
	if worker == nil {
		panic("failed to initialize sonyflake")
	}
	return worker
}

func machineID() uint16 {
	if v := os.Getenv(MachineIDEnv); v != "" {
		id, err := strconv.ParseUint(v, 10, 16)
		if err == nil {
			return uint16(id)
		}
		logrus.Warnf("invalid %s %q, fallback to pid", MachineIDEnv, v)
	}
	return uint16(os.Getpid())
}

func NextID(idWorker *sonyflake.Sonyflake) types.ID {
	id, err := idWorker.NextID()
	if err != nil {
		panic(err)
	}
	return types.ID(id)
}
