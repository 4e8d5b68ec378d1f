package lib

import (
	//source
	_ "vesta/lib/component/source/file"
	_ "vesta/lib/component/source/kafka"
	_ "vesta/lib/component/source/mock"
	_ "vesta/lib/component/source/spooldir"

	//operator
	_ "vesta/lib/component/function/split"
	_ "vesta/lib/component/function/tengo"
	_ "vesta/lib/component/operator/sample"

	//sink
	_ "vesta/lib/component/sink/echo"
	_ "vesta/lib/component/sink/file"
)
