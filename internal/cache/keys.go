package cache

import "fmt"

func ComparisonKey(inspectionNo string) string {
	return fmt.Sprintf("comparison:%s", inspectionNo)
}
