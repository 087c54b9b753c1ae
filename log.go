package paygate

import "github.com/tachi-labs/paygate/common"

var log = common.NewLog("paygate")
