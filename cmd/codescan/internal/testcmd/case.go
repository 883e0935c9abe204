package testcmd

type Case struct {
	Name string
	Args []string
	Exit int
}
