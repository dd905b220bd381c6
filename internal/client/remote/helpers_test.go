package remote

import "database/sql/driver"

func driverBadConn() error { return driver.ErrBadConn }
