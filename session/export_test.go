package session

func MaxOpenConns(s *SQLiteStore) int {
	return s.sqlDB.Stats().MaxOpenConnections
}
